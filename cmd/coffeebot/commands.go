package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thedevi-l/eng-coffee-bot/internal/config"
)

// --- profiles ---

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Inspect stored learner profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(fmt.Sprintf("/profiles?limit=%d", limit))
		if err != nil {
			return err
		}

		var profiles []struct {
			UserID    int64  `json:"user_id"`
			Username  string `json:"username"`
			Name      string `json:"name"`
			Level     string `json:"level"`
			Interests string `json:"interests"`
		}
		if err := decodeJSON(resp, &profiles); err != nil {
			return err
		}

		if len(profiles) == 0 {
			fmt.Println("No profiles stored.")
			return nil
		}

		for _, p := range profiles {
			handle := p.Name
			if p.Username != "" {
				handle = p.Name + " (@" + p.Username + ")"
			}
			fmt.Printf("%s  %s  %s  %s\n",
				colorize(colorCyan, fmt.Sprintf("%d", p.UserID)),
				colorize(colorBold, p.Level),
				handle,
				p.Interests,
			)
		}
		return nil
	},
}

var profilesShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Show a single profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get("/profiles/" + args[0])
		if err != nil {
			return err
		}

		var profile any
		if err := decodeJSON(resp, &profile); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	},
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete <user-id>",
	Short: "Delete a stored profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete("/profiles/" + args[0])
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("server returned %d", resp.StatusCode)
		}

		printSuccess("Deleted profile %s", args[0])
		return nil
	},
}

func init() {
	profilesListCmd.Flags().Int("limit", 100, "maximum number of profiles to list")
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesShowCmd)
	profilesCmd.AddCommand(profilesDeleteCmd)
}

// --- match ---

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Resolve the best partner for a user (read-only, no message sent)",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user")
		if userID == 0 {
			return fmt.Errorf("--user is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(fmt.Sprintf("/profiles/%d/match", userID))
		if err != nil {
			return err
		}

		var result struct {
			Outcome string `json:"outcome"`
			Match   *struct {
				UserID    int64  `json:"user_id"`
				Username  string `json:"username"`
				Name      string `json:"name"`
				Level     string `json:"level"`
				Interests string `json:"interests"`
			} `json:"match"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		switch result.Outcome {
		case "found":
			printSuccess("Match for %d: %s (%d, %s) — %s",
				userID, result.Match.Name, result.Match.UserID, result.Match.Level, result.Match.Interests)
		case "no_profile":
			printWarning("User %d has no completed profile", userID)
		case "no_candidate":
			printWarning("No candidates at user %d's level", userID)
		default:
			fmt.Printf("outcome: %s\n", result.Outcome)
		}
		return nil
	},
}

func init() {
	matchCmd.Flags().Int64("user", 0, "Telegram user id to match")
}

// --- broadcast ---

var broadcastCmd = &cobra.Command{
	Use:   "broadcast",
	Short: "Trigger a match broadcast to all stored profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will message every stored profile. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post("/broadcast")
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Broadcast %s started", result["run_id"])
		return nil
	},
}

func init() {
	broadcastCmd.Flags().Bool("confirm", false, "confirm sending messages to everyone")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
