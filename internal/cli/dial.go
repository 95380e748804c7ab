package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fleetops/fleetctl/internal/config"
	"github.com/fleetops/fleetctl/internal/errors"
	"github.com/fleetops/fleetctl/internal/logger"
	"github.com/fleetops/fleetctl/internal/orchestrator"
	"github.com/fleetops/fleetctl/pkg/sshutil"
)

// nodeDialer builds the real SSH dialer for the orchestrator. Password-auth
// nodes without a configured password get a single no-echo prompt.
func nodeDialer(cfg *config.Config) orchestrator.Dialer {
	return func(name string, node config.Node) (sshutil.Transport, error) {
		opts := sshutil.Options{
			User:     node.User,
			Port:     node.Port,
			KeyFile:  node.KeyFile,
			Password: node.Password,
			KeyAuth:  node.KeyAuth,
			Timeout:  cfg.Remote.ConnectTimeout,
		}

		if !node.KeyAuth && opts.Password == "" {
			password, err := sshutil.PromptPassword(fmt.Sprintf("Password for %s: ", name))
			if err != nil {
				return nil, errors.Wrap(err, "Couldn't read the password for "+name)
			}
			opts.Password = password
		}

		client, err := sshutil.Dial(node.Address, opts)
		if err != nil {
			return nil, err
		}
		logger.Default().Debug("node %s: connected to %s", name, client.GetAddress())
		return client, nil
	}
}

// confirm asks a y/N question on the terminal.
func confirm(prompt string) (bool, error) {
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
