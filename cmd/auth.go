package cmd

import (
	"errors"
	"fmt"

	"github.com/marcus/taskflow/internal/api"
	"github.com/marcus/taskflow/internal/auth"
	"github.com/marcus/taskflow/internal/input"
	"github.com/marcus/taskflow/internal/models"
	"github.com/marcus/taskflow/internal/output"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Log in and store the session token",
	GroupID: "account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if err := promptMissing(
			field{title: "Email", value: &email},
			field{title: "Password", secret: true, value: &password},
		); err != nil {
			return err
		}
		if err := input.ValidateLogin(email, password); err != nil {
			return err
		}

		res := current.machine.Login(cmdContext(cmd), api.Credentials{Email: email, Password: password})
		return printSessionResult(res, "Logged in")
	},
}

var registerCmd = &cobra.Command{
	Use:     "register",
	Short:   "Create an account and log in",
	GroupID: "account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if err := promptMissing(
			field{title: "Name", value: &name},
			field{title: "Email", value: &email},
			field{title: "Password", secret: true, value: &password},
		); err != nil {
			return err
		}
		if err := input.ValidateRegister(name, email, password); err != nil {
			return err
		}

		res := current.machine.Register(cmdContext(cmd), api.RegisterRequest{Name: name, Email: email, Password: password})
		return printSessionResult(res, "Registered")
	},
}

// printSessionResult reports a login or registration.
func printSessionResult(res auth.Result, verb string) error {
	if !res.Success {
		return errors.New(res.Error)
	}
	state := current.machine.State()
	if flagJSON {
		return output.JSON(map[string]any{"message": res.Message, "user": state.User})
	}
	who := state.User.Email()
	if name := state.User.Name(); name != "" {
		who = fmt.Sprintf("%s <%s>", name, who)
	}
	output.Success("%s as %s", verb, who)
	return nil
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Forget the stored session token",
	GroupID: "account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		current.machine.Logout(cmdContext(cmd))
		if flagJSON {
			return output.JSON(map[string]any{"message": "Logged out successfully"})
		}
		output.Success("Logged out")
		return nil
	},
}

// requireUser loads the session and fails when no one is logged in.
func requireUser(cmd *cobra.Command) (models.User, error) {
	current.machine.Load(cmdContext(cmd))
	state := current.machine.State()
	if state.IsAuthenticated {
		return state.User, nil
	}
	if state.Error != "" {
		return nil, fmt.Errorf("session expired (%s): %w", state.Error, errNotLoggedIn)
	}
	return nil, fmt.Errorf("you are %w", errNotLoggedIn)
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Short:   "Show the logged-in user",
	GroupID: "account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}
		if flagJSON {
			return output.JSON(user)
		}
		fmt.Fprint(output.Out, output.FormatUser(user))
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update your profile",
	Long: `Show your profile, or update it with --name, --email or --set.

Examples:
  taskflow profile
  taskflow profile --name "Ada Lovelace"
  taskflow profile --set bio=@bio.txt`,
	GroupID: "account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser(cmd)
		if err != nil {
			return err
		}

		sets, _ := cmd.Flags().GetStringArray("set")
		fields, err := input.ParseAssignments(sets)
		if err != nil {
			return &input.ValidationError{Message: err.Error()}
		}
		for k, v := range fields {
			if fields[k], err = input.ExpandValue(v.(string), cmd.InOrStdin()); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("name") {
			fields["name"], _ = cmd.Flags().GetString("name")
		}
		if cmd.Flags().Changed("email") {
			fields["email"], _ = cmd.Flags().GetString("email")
		}

		if len(fields) > 0 {
			res := current.machine.UpdateProfile(cmdContext(cmd), models.User(fields))
			if !res.Success {
				return errors.New(res.Error)
			}
			user = current.machine.State().User
			if !flagJSON {
				output.Success("%s", orDefault(res.Message, "Profile updated"))
			}
		}

		if flagJSON {
			return output.JSON(user)
		}
		fmt.Fprint(output.Out, output.FormatUser(user))
		return nil
	},
}

var passwdCmd = &cobra.Command{
	Use:     "passwd",
	Short:   "Change your password",
	GroupID: "account",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		currentPw, _ := cmd.Flags().GetString("current")
		newPw, _ := cmd.Flags().GetString("new")
		if err := promptMissing(
			field{title: "Current password", secret: true, value: &currentPw},
			field{title: "New password", secret: true, value: &newPw},
		); err != nil {
			return err
		}
		if currentPw == "" || newPw == "" {
			return &input.ValidationError{Message: input.MsgRequiredFields}
		}

		res := current.machine.ChangePassword(cmdContext(cmd), api.PasswordChange{CurrentPassword: currentPw, NewPassword: newPw})
		if !res.Success {
			return errors.New(res.Error)
		}
		if flagJSON {
			return output.JSON(map[string]any{"message": res.Message})
		}
		output.Success("%s", orDefault(res.Message, "Password changed"))
		return nil
	},
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd, profileCmd, passwdCmd)

	loginCmd.Flags().StringP("email", "e", "", "Account email")
	loginCmd.Flags().StringP("password", "p", "", "Account password (prompted when omitted)")

	registerCmd.Flags().StringP("name", "n", "", "Display name")
	registerCmd.Flags().StringP("email", "e", "", "Account email")
	registerCmd.Flags().StringP("password", "p", "", "Account password (prompted when omitted)")

	profileCmd.Flags().String("name", "", "New display name")
	profileCmd.Flags().String("email", "", "New email")
	profileCmd.Flags().StringArray("set", nil, "Set any profile field (key=value, value may be @file or -)")

	passwdCmd.Flags().String("current", "", "Current password (prompted when omitted)")
	passwdCmd.Flags().String("new", "", "New password (prompted when omitted)")
}
