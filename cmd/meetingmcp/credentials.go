package meetingmcp

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NaveenPalisetti/meetingmcp/pkg/credentials"
	"github.com/NaveenPalisetti/meetingmcp/pkg/store"
)

var credentialsCmd = &cobra.Command{
	Use:     "credentials",
	Aliases: []string{"creds"},
	Short:   "Manage encrypted integration credentials",
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set <name> [value]",
	Short: "Store a credential (reads the value from stdin when omitted)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCredentialsSet,
}

var credentialsGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a decrypted credential",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredentialsGet,
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credential names",
	RunE:  runCredentialsList,
}

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a credential",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredentialsDelete,
}

func init() {
	credentialsCmd.AddCommand(credentialsSetCmd, credentialsGetCmd, credentialsListCmd, credentialsDeleteCmd)
}

// openCredentialStore opens the credential store with the master key from the
// environment. The caller owns the returned close func.
func openCredentialStore() (*credentials.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	masterKey := os.Getenv(masterKeyEnv(cfg))
	if masterKey == "" {
		return nil, nil, fmt.Errorf("%s is not set; the credential store is locked", masterKeyEnv(cfg))
	}

	db, err := store.New(cfg.Store.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	credStore, err := credentials.New(db.DB(), masterKey)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("opening credential store: %w", err)
	}
	return credStore, func() { db.Close() }, nil
}

func runCredentialsSet(cmd *cobra.Command, args []string) error {
	name := args[0]

	value := ""
	if len(args) == 2 {
		value = args[1]
	} else {
		fmt.Fprintf(os.Stderr, "Value for %s: ", name)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading value: %w", err)
		}
		value = strings.TrimRight(line, "\r\n")
	}
	if value == "" {
		return fmt.Errorf("credential value is empty")
	}

	credStore, closeStore, err := openCredentialStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := credStore.Set(context.Background(), name, value); err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}
	fmt.Printf("Stored %s\n", name)
	return nil
}

func runCredentialsGet(cmd *cobra.Command, args []string) error {
	credStore, closeStore, err := openCredentialStore()
	if err != nil {
		return err
	}
	defer closeStore()

	value, err := credStore.Get(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func runCredentialsList(cmd *cobra.Command, args []string) error {
	credStore, closeStore, err := openCredentialStore()
	if err != nil {
		return err
	}
	defer closeStore()

	names, err := credStore.List(context.Background())
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No credentials stored.")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func runCredentialsDelete(cmd *cobra.Command, args []string) error {
	credStore, closeStore, err := openCredentialStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := credStore.Delete(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}
