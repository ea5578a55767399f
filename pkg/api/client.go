package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jirenz/dist-scheduler/pkg/transport"
	"github.com/jirenz/dist-scheduler/pkg/types"
)

// callTimeout bounds how long a front-end call waits for the
// scheduler's reply; query/assign/delete handlers all reply
// synchronously within the same event-loop iteration, so this only
// guards against a scheduler that's gone unreachable.
const callTimeout = 10 * time.Second

// ClientConfig is the bridge's own config file, mirroring the
// original client's default-server-address file.
type ClientConfig struct {
	Server string `yaml:"server"`
}

const defaultServer = "127.0.0.1:13480"

// defaultClientConfigYAML is written verbatim to a fresh
// ~/.scheduler-client.yml, mirroring the commented-out optional keys
// the original CLI's generated config carried alongside its defaults.
const defaultClientConfigYAML = `server: ` + defaultServer + `
# local_temp_tar: /tmp/scheduler-context.tar.gz
`

// loadClientConfig reads ~/.scheduler-client.yml, creating it with
// defaultClientConfigYAML on first run, and falls back to an
// in-memory default if the home directory or file can't be touched at
// all.
func loadClientConfig() ClientConfig {
	cfg := ClientConfig{Server: defaultServer}
	home, err := os.UserHomeDir()
	if err != nil {
		return cfg
	}
	path := filepath.Join(home, ".scheduler-client.yml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if writeErr := os.WriteFile(path, []byte(defaultClientConfigYAML), 0o644); writeErr != nil {
				return cfg
			}
			data = []byte(defaultClientConfigYAML)
		} else {
			return cfg
		}
	}

	_ = yaml.Unmarshal(data, &cfg)
	if cfg.Server == "" {
		cfg.Server = defaultServer
	}
	return cfg
}

// call dials addr fresh, sends env, and waits for the reply. Neither
// front-end holds a connection open between requests.
func call(addr string, env types.Envelope) (types.Envelope, error) {
	client, err := transport.Dial(addr, "")
	if err != nil {
		return types.Envelope{}, fmt.Errorf("api: dial scheduler at %s: %w", addr, err)
	}
	defer client.Close()

	if err := client.Send(env); err != nil {
		return types.Envelope{}, fmt.Errorf("api: send %s: %w", env.Type, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	reply, err := client.Recv(ctx)
	if err != nil {
		return types.Envelope{}, fmt.Errorf("api: recv reply to %s: %w", env.Type, err)
	}
	return reply, nil
}
