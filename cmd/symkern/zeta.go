package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var zetaCmd = &cobra.Command{
	Use:   "zeta x a",
	Short: "Evaluate the Hurwitz zeta function at machine precision",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		x, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("x: %w", err)
		}
		a, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("a: %w", err)
		}
		s, err := newSession()
		if err != nil {
			return err
		}
		v, err := s.Config().Zeta.HurwitzZeta(x, a)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(v, 'g', -1, 64))
		return nil
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules [head]",
	Short: "List the heads carrying rules, or the rules of one head",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(args) == 0 {
			for _, h := range s.Heads() {
				fmt.Fprintf(w, "%s\t%d\n", h, len(s.Rules(h)))
			}
			return nil
		}
		rules := s.Rules(args[0])
		if len(rules) == 0 {
			return fmt.Errorf("no rules for %s", args[0])
		}
		for _, r := range rules {
			fmt.Fprintln(w, r)
		}
		return nil
	},
}
