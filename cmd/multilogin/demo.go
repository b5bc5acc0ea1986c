package main

import (
	"context"
	"crypto/subtle"
	"os"

	"github.com/omarluq/multilogin/internal/auth"
	"github.com/omarluq/multilogin/internal/registry"
)

// Demo verifier names usable from a config file.
const (
	DemoPCVerifier  = "demo_pc"
	DemoAppVerifier = "demo_app"
	DemoSMSVerifier = "demo_sms"
)

// demoUser is the principal returned by the demo verifiers.
type demoUser struct {
	Name    string `json:"name"`
	Channel string `json:"channel"`
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// passwordVerifier accepts MULTILOGIN_DEMO_USER / MULTILOGIN_DEMO_PASSWORD
// (default demo / demo).
func passwordVerifier(channel string) auth.VerifierFunc {
	return func(_ context.Context, params map[string]string) (any, error) {
		user := envOr("MULTILOGIN_DEMO_USER", "demo")
		pass := envOr("MULTILOGIN_DEMO_PASSWORD", "demo")
		if !equal(params["username"], user) || !equal(params["password"], pass) {
			return nil, auth.Reject("bad_credentials", "invalid username or password")
		}
		return demoUser{Name: user, Channel: channel}, nil
	}
}

// smsVerifier accepts any mobile with MULTILOGIN_DEMO_SMS_CODE (default 000000).
func smsVerifier(_ context.Context, params map[string]string) (any, error) {
	mobile := params["mobile"]
	if mobile == "" {
		return nil, auth.Reject("missing_mobile", "mobile is required")
	}
	if !equal(params["code"], envOr("MULTILOGIN_DEMO_SMS_CODE", "000000")) {
		return nil, auth.Reject("bad_code", "invalid verification code")
	}
	return demoUser{Name: mobile, Channel: "sms"}, nil
}

// newRegistry returns the registry with the built-ins and demo verifiers.
func newRegistry() (*registry.Registry, error) {
	reg := registry.New()
	for name, v := range map[string]auth.VerifierFunc{
		DemoPCVerifier:  passwordVerifier("pc"),
		DemoAppVerifier: passwordVerifier("app"),
		DemoSMSVerifier: smsVerifier,
	} {
		if err := reg.RegisterVerifierFunc(name, v); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
