package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"nfsync/internal/creds"
	"nfsync/internal/types"
	"nfsync/internal/utils"
)

var credsFlags struct {
	username string
	password string
}

var credsCmd = &cobra.Command{
	Use:   "creds",
	Short: "Manage the share credential",
	Long: `Commands for storing the credential used to mount the share. The
credential goes to the system keyring when one is available, with an
encrypted file as fallback. The password is never written to the
configuration file.`,
}

var credsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the mount credential",
	Long: `Store the username and password used when mounting. The password is
prompted without echo unless --password is given (which leaves it in
shell history; prefer the prompt).`,
	RunE: runCredsSet,
}

var credsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored credential",
	RunE:  runCredsClear,
}

var credsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where the credential is stored",
	RunE:  runCredsStatus,
}

func init() {
	credsSetCmd.Flags().StringVar(&credsFlags.username, "username", "", "Username for the share")
	credsSetCmd.Flags().StringVar(&credsFlags.password, "password", "", "Password (omit to be prompted)")
	rootCmd.AddCommand(credsCmd)
	credsCmd.AddCommand(credsSetCmd)
	credsCmd.AddCommand(credsClearCmd)
	credsCmd.AddCommand(credsStatusCmd)
}

type credsStatusResult struct {
	Stored   bool   `json:"stored"`
	Username string `json:"username,omitempty"`
	Backend  string `json:"backend"`
}

func (r *credsStatusResult) AsTableRenderer() types.TableRenderer {
	return &kvTable{pairs: [][2]string{
		{"Stored", boolWord(r.Stored)},
		{"Username", r.Username},
		{"Backend", r.Backend},
	}}
}

func runCredsSet(cmd *cobra.Command, args []string) error {
	out := newOutput()
	manager, err := newCredsManager(out)
	if err != nil {
		return out.WriteError("creds.set",
			utils.NewCLIError(utils.ErrCodeInternalError, err.Error()).Build())
	}

	username := credsFlags.username
	if username == "" {
		username, err = promptLine("Username: ")
		if err != nil {
			return out.WriteError("creds.set",
				utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
		}
	}
	if username == "" {
		return out.WriteError("creds.set",
			utils.NewCLIError(utils.ErrCodeInvalidArgument, "username must not be empty").Build())
	}

	password := credsFlags.password
	if password == "" {
		password, err = promptPassword("Password: ")
		if err != nil {
			return out.WriteError("creds.set",
				utils.NewCLIError(utils.ErrCodeInvalidArgument, err.Error()).Build())
		}
	}
	if password == "" {
		return out.WriteError("creds.set",
			utils.NewCLIError(utils.ErrCodeInvalidArgument, "password must not be empty").Build())
	}

	if err := manager.Set(creds.MountCredential, creds.Credential{
		Username: username,
		Password: password,
	}); err != nil {
		return out.WriteError("creds.set",
			utils.NewCLIError(utils.ErrCodeKeyringUnavailable, err.Error()).Build())
	}

	return out.WriteSuccess("creds.set", &credsStatusResult{
		Stored:   true,
		Username: username,
		Backend:  manager.StorageName(),
	})
}

func runCredsClear(cmd *cobra.Command, args []string) error {
	out := newOutput()
	manager, err := newCredsManager(out)
	if err != nil {
		return out.WriteError("creds.clear",
			utils.NewCLIError(utils.ErrCodeInternalError, err.Error()).Build())
	}

	if err := manager.Clear(creds.MountCredential); err != nil {
		return out.WriteError("creds.clear",
			utils.NewCLIError(utils.ErrCodeKeyringUnavailable, err.Error()).Build())
	}

	return out.WriteSuccess("creds.clear", &credsStatusResult{
		Stored:  false,
		Backend: manager.StorageName(),
	})
}

func runCredsStatus(cmd *cobra.Command, args []string) error {
	out := newOutput()
	manager, err := newCredsManager(out)
	if err != nil {
		return out.WriteError("creds.status",
			utils.NewCLIError(utils.ErrCodeInternalError, err.Error()).Build())
	}

	result := &credsStatusResult{Backend: manager.StorageName()}
	if cred, getErr := manager.Get(creds.MountCredential); getErr == nil {
		result.Stored = true
		result.Username = cred.Username
	}
	return out.WriteSuccess("creds.status", result)
}

func promptLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		defer fmt.Fprintln(os.Stderr)
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	// Piped input, e.g. from a secret manager.
	return promptLineNoPrompt()
}

func promptLineNoPrompt() (string, error) {
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
