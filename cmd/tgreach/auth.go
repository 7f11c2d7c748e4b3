package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tgreach/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Telegram API credentials",
	Long: `Manage stored Telegram API credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)

Get your API id and hash from https://my.telegram.org/apps.`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [phone]",
	Short: "Store Telegram API credentials securely",
	Long: `Store Telegram API credentials in the system keychain or an encrypted
file. You will be prompted for the phone number (if not provided), the
API id, the API hash, and an optional session name.`,
	Example: `  # Interactive login
  tgreach auth login

  # Login for a specific phone number
  tgreach auth login +15551234567`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout <phone>",
	Short: "Remove stored credentials",
	Long:  `Remove the stored Telegram API credentials for a phone number.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored Telegram accounts with the API hash masked.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	var phone string
	if len(args) > 0 {
		phone = strings.TrimSpace(args[0])
	}
	if phone == "" {
		fmt.Print("Phone number (international format, e.g. +15551234567): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read phone number: %w", err)
		}
		phone = strings.TrimSpace(input)
	}
	if phone == "" {
		return fmt.Errorf("phone number is required")
	}

	if existing, _ := manager.Retrieve(phone); existing != nil {
		fmt.Printf("Account %s already exists. Update credentials? (y/N): ", phone)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	fmt.Print("API id: ")
	idInput, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read API id: %w", err)
	}
	apiID, err := strconv.Atoi(strings.TrimSpace(idInput))
	if err != nil || apiID <= 0 {
		return fmt.Errorf("API id must be a positive integer")
	}

	fmt.Print("API hash (hidden as you type): ")
	apiHash, err := readSecret()
	if err != nil {
		return fmt.Errorf("failed to read API hash: %w", err)
	}
	if len(apiHash) != 32 {
		return fmt.Errorf("API hash should be 32 hex characters")
	}

	fmt.Print("Session name (press Enter for default): ")
	sessionInput, _ := reader.ReadString('\n')
	sessionName := strings.TrimSpace(sessionInput)

	account := &auth.Account{
		Phone:       phone,
		APIID:       apiID,
		APIHash:     apiHash,
		SessionName: sessionName,
	}

	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Printf("Credentials stored for %s\n", phone)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	phone := strings.TrimSpace(args[0])
	if err := manager.Delete(phone); err != nil {
		return err
	}

	fmt.Printf("Credentials removed for %s\n", phone)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		fmt.Println("No stored accounts. Run 'tgreach auth login' to add one.")
		return nil
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Phone < accounts[j].Phone })

	fmt.Printf("%-18s %-10s %-36s %s\n", "PHONE", "API ID", "API HASH", "SESSION")
	for _, account := range accounts {
		masked := auth.SanitizeAccount(account)
		session := masked.SessionName
		if session == "" {
			session = "-"
		}
		fmt.Printf("%-18s %-10d %-36s %s\n", masked.Phone, masked.APIID, masked.APIHash, session)
	}
	return nil
}

// readSecret reads a line from stdin without echoing.
func readSecret() (string, error) {
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
