package method_test

import (
	"context"
	"reflect"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/omarluq/multilogin/internal/config"
	"github.com/omarluq/multilogin/internal/method"
	"github.com/omarluq/multilogin/internal/registry"
)

func propertyRegistry() *registry.Registry {
	reg := registry.New()
	_ = reg.RegisterVerifierFunc("v", func(context.Context, map[string]string) (any, error) { //nolint:errcheck // fresh registry
		return "p", nil
	})
	return reg
}

var paramName = gen.OneConstOf("username", "password", "phone", "code", "captcha", "")

func methodGen() gopter.Gen {
	return gopter.CombineGens(
		gen.SliceOfN(3, paramName),
		gen.SliceOfN(2, paramName),
		gen.SliceOfN(2, paramName),
	).Map(func(vals []any) config.LoginConfig {
		return config.LoginConfig{
			Enabled: true,
			Methods: map[string]config.MethodConfig{
				"m": {
					Params:           vals[0].([]string),
					PrincipalParams:  vals[1].([]string),
					CredentialParams: vals[2].([]string),
					Verifiers:        map[string]string{config.DefaultClientType: "v"},
				},
			},
		}
	})
}

func TestResolve_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("principal and credential names are declared parameters", prop.ForAll(
		func(login config.LoginConfig) bool {
			table, err := method.Resolve(login, propertyRegistry())
			if err != nil {
				_, isCfgErr := err.(*method.ConfigurationError)
				return isCfgErr && table == nil
			}
			m, ok := table.Lookup("m")
			if !ok {
				return false
			}
			params := m.Params()
			for _, n := range slices.Concat(m.PrincipalParams(), m.CredentialParams()) {
				if !slices.Contains(params, n) {
					return false
				}
			}
			return true
		},
		methodGen(),
	))

	properties.Property("declared names are never dropped", prop.ForAll(
		func(login config.LoginConfig) bool {
			table, err := method.Resolve(login, propertyRegistry())
			if err != nil {
				return true
			}
			m, _ := table.Lookup("m")
			raw := login.Methods["m"]
			for _, n := range slices.Concat(raw.Params, raw.PrincipalParams, raw.CredentialParams) {
				if !slices.Contains(m.Params(), n) {
					return false
				}
			}
			return true
		},
		methodGen(),
	))

	properties.Property("resolving twice gives equal results", prop.ForAll(
		func(login config.LoginConfig) bool {
			reg := propertyRegistry()
			t1, err1 := method.Resolve(login, reg)
			t2, err2 := method.Resolve(login, reg)
			if err1 != nil || err2 != nil {
				return err1 != nil && err2 != nil && err1.Error() == err2.Error()
			}
			return reflect.DeepEqual(t1.Describe(), t2.Describe())
		},
		methodGen(),
	))

	properties.TestingRun(t)
}
