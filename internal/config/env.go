package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

type lookuper interface {
	Lookup(key string) (string, bool)
}

// envSource resolves variables from the process environment first and then
// from .env files. Files are read, never loaded into the process env.
type envSource struct {
	getenv func(string) (string, bool)
	dotenv map[string]string
}

// newEnvSource reads the given .env files. Earlier files take precedence;
// missing files are ignored.
func newEnvSource(paths ...string) envSource {
	merged := make(map[string]string)
	for i := len(paths) - 1; i >= 0; i-- {
		vars, err := godotenv.Read(paths[i])
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "[WARN] could not read env file %s: %v\n", paths[i], err)
			}
			continue
		}
		for k, v := range vars {
			merged[k] = v
		}
	}
	return envSource{getenv: os.LookupEnv, dotenv: merged}
}

func (e envSource) Lookup(key string) (string, bool) {
	if e.getenv != nil {
		if v, ok := e.getenv(key); ok && v != "" {
			return v, true
		}
	}
	v, ok := e.dotenv[key]
	return v, ok && v != ""
}
