package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Enter admin mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if a.Config().Gate.PasscodeHash == "" {
			return errors.New("no admin passcode configured: see 'edusphere config passcode'")
		}
		passcode, err := promptSecret(cmd, "Passcode")
		if err != nil {
			return err
		}
		if !a.Gate().Login(passcode) {
			return errors.New("incorrect passcode")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Admin mode enabled.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Leave admin mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		a.Gate().Logout()
		fmt.Fprintln(cmd.OutOrStdout(), "Admin mode disabled.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show admin mode and local edit status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		mode := "student"
		if a.Gate().Privileged() {
			mode = "admin"
		}
		edits := "none"
		if a.Repository().Modified() {
			edits = "present"
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Profile:      %s\n", a.Config().ProfileID)
		fmt.Fprintf(out, "Mode:         %s\n", mode)
		fmt.Fprintf(out, "Local edits:  %s\n", edits)
		fmt.Fprintf(out, "Seed version: %d\n", a.Repository().SeedVersion())
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard all local edits and restore the seed catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := requireAdmin(a); err != nil {
			return err
		}

		if !a.Repository().Modified() {
			fmt.Fprintln(cmd.OutOrStdout(), "No local edits; nothing to reset.")
			return nil
		}
		if err := confirm(cmd, "discard all local folders and materials"); err != nil {
			return err
		}
		a.Repository().Reset()
		fmt.Fprintln(cmd.OutOrStdout(), "Restored the seed catalog.")
		return nil
	},
}
