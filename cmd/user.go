package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/defect-tracker/dto"
	"github.com/defect-tracker/services"
	"github.com/defect-tracker/utils"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	userEmail    string
	userRole     string
	userPassword string
	userGenerate bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management commands",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new user",
	Long: `Create a new account, optionally assigning one role.

Without --password the password is prompted interactively, or generated
and printed once with --generate-password.

Example:
  defect-tracker user create --email qa@example.com --role Engineer`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if userEmail == "" {
			return errors.New("--email is required")
		}

		password, err := resolvePassword()
		if err != nil {
			return err
		}

		return withContainer(func(inj *do.Injector) error {
			accounts := do.MustInvoke[*services.AccountService](inj)
			user, err := accounts.CreateUser(cmd.Context(), dto.CreateUserRequest{
				Email:           userEmail,
				Password:        password,
				ConfirmPassword: password,
				Role:            userRole,
			})
			if err != nil {
				return fmt.Errorf("create user: %w", err)
			}

			fmt.Printf("User created:\n")
			fmt.Printf("  ID:    %s\n", user.ID)
			fmt.Printf("  Email: %s\n", user.Email)
			fmt.Printf("  Roles: %s\n", strings.Join(user.Roles, ", "))
			if userGenerate {
				fmt.Printf("  Password: %s\n", password)
			}
			return nil
		})
	},
}

var userSetPasswordCmd = &cobra.Command{
	Use:   "set-password",
	Short: "Replace the password of an existing user",
	Long: `Replace the password of the account registered under --email.

Example:
  defect-tracker user set-password --email admin@defects.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if userEmail == "" {
			return errors.New("--email is required")
		}

		password, err := resolvePassword()
		if err != nil {
			return err
		}

		return withContainer(func(inj *do.Injector) error {
			accounts := do.MustInvoke[*services.AccountService](inj)
			if err := accounts.SetPassword(cmd.Context(), userEmail, password); err != nil {
				return fmt.Errorf("set password: %w", err)
			}
			fmt.Printf("Password updated for %s\n", userEmail)
			if userGenerate {
				fmt.Printf("  Password: %s\n", password)
			}
			return nil
		})
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "email, also used as the user name")
	userCreateCmd.Flags().StringVar(&userRole, "role", "", "role to assign (Admin, Manager, Engineer, Viewer)")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "password; prompted when omitted")
	userCreateCmd.Flags().BoolVar(&userGenerate, "generate-password", false, "generate a random password")
	userSetPasswordCmd.Flags().StringVar(&userEmail, "email", "", "email of the account")
	userSetPasswordCmd.Flags().StringVar(&userPassword, "password", "", "password; prompted when omitted")
	userSetPasswordCmd.Flags().BoolVar(&userGenerate, "generate-password", false, "generate a random password")
	userCmd.AddCommand(userCreateCmd, userSetPasswordCmd)
}

func resolvePassword() (string, error) {
	switch {
	case userPassword != "":
		return userPassword, nil
	case userGenerate:
		return utils.GeneratePassword(16)
	}

	password, err := promptPassword("Enter password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("read password confirmation: %w", err)
	}
	if password != confirm {
		return "", errors.New("passwords do not match")
	}
	return password, nil
}

// promptPassword reads without echo when stdin is a terminal
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
