// SPDX-FileCopyrightText: Copyright 2026 Acton Framework Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/acton-framework/acton/pkg/errors"
)

// validate is shared; validator instances cache struct metadata.
var validate = validator.New()

// jwtAlgorithms are the signing algorithms a JWT validator may be pinned to.
var jwtAlgorithms = map[string]bool{
	"RS256": true, "RS384": true, "RS512": true,
	"ES256": true, "ES384": true,
	"HS256": true, "HS384": true, "HS512": true,
}

// Validate checks the configuration tree. All rules must hold; the first
// violation is returned as a config error naming the offending field.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if ok := stderrors.As(err, &verrs); ok && len(verrs) > 0 {
			f := verrs[0]
			return errors.NewConfig(
				fmt.Sprintf("invalid config field %s: failed %q constraint", f.Namespace(), f.Tag()), nil)
		}
		return errors.NewConfig("config validation failed", err)
	}

	switch cfg.Middleware.CORSMode {
	case CORSPermissive, CORSRestrictive, CORSDisabled:
	default:
		return errors.NewConfig(
			fmt.Sprintf("middleware.cors_mode must be permissive, restrictive or disabled, got %q",
				cfg.Middleware.CORSMode), nil)
	}

	if cfg.JWT != nil && !jwtAlgorithms[cfg.JWT.Algorithm] {
		return errors.NewConfig(
			fmt.Sprintf("jwt.algorithm %q is not supported", cfg.JWT.Algorithm), nil)
	}

	if cfg.PASETO != nil {
		if cfg.PASETO.Version != "v4" {
			return errors.NewConfig(
				fmt.Sprintf("paseto.version must be v4, got %q", cfg.PASETO.Version), nil)
		}
		if cfg.PASETO.Purpose != "local" && cfg.PASETO.Purpose != "public" {
			return errors.NewConfig(
				fmt.Sprintf("paseto.purpose must be local or public, got %q", cfg.PASETO.Purpose), nil)
		}
		if cfg.PASETO.KeyHex == "" && cfg.PASETO.KeyFile == "" {
			return errors.NewConfig("paseto requires key_hex or key_file", nil)
		}
	}

	if cfg.Lockout != nil {
		p := cfg.Lockout.KeyPrefix
		if strings.ContainsAny(p, ": \t\n") {
			return errors.NewConfig(
				fmt.Sprintf("lockout.key_prefix %q must not contain ':' or whitespace", p), nil)
		}
	}

	if cfg.Audit != nil {
		switch cfg.Audit.Syslog.Transport {
		case SyslogUDP, SyslogTCP, SyslogNone:
		default:
			return errors.NewConfig(
				fmt.Sprintf("audit.syslog.transport must be udp, tcp or none, got %q",
					cfg.Audit.Syslog.Transport), nil)
		}
		if cfg.Audit.Storage != "database" && cfg.Audit.Storage != "altdb" {
			return errors.NewConfig(
				fmt.Sprintf("audit.storage must be database or altdb, got %q", cfg.Audit.Storage), nil)
		}
	}

	if cfg.TLS != nil {
		for _, f := range []string{cfg.TLS.CertFile, cfg.TLS.KeyFile} {
			if err := checkReadable(f); err != nil {
				return errors.NewConfig(fmt.Sprintf("tls file %s is not readable", f), err)
			}
		}
	}

	return nil
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
