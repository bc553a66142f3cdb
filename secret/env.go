package secret

import (
	"fmt"
	"os"
)

const (
	SecretEnvVar = "GATEKEEPER_SECRET"
)

// FromEnv reads the signing secret from varname and blanks the variable so
// it does not leak into child processes.
//
// getfn and setfn default to os.Getenv and os.Setenv.
func FromEnv(varname string, getfn func(string) string, setfn func(string, string) error) ([]byte, error) {
	if getfn == nil {
		getfn = os.Getenv
	}
	if setfn == nil {
		setfn = os.Setenv
	}
	val := getfn(varname)
	if err := setfn(varname, ""); err != nil {
		return nil, fmt.Errorf("secret: unable to clear %v, cause %w", varname, err)
	}
	if len(val) == 0 {
		return nil, fmt.Errorf("secret: %v is empty, cause %w", varname, ErrMissingSecret)
	}
	return []byte(val), nil
}
