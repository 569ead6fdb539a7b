package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"lesiw.io/snooze"
)

// A selectorFile is the YAML input of the match command.
type selectorFile struct {
	Operator  *snooze.Operator  `yaml:"operator"`
	Selectors []snooze.Selector `yaml:"selectors"`
}

type matchOutput struct {
	Operator string   `yaml:"operator"`
	Rules    []string `yaml:"rules"`
	Matched  []string `yaml:"matched"`
	Total    int      `yaml:"total"`
}

func newMatchCmd(a *app) *cobra.Command {
	var selPath, instPath, opFlag string
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Preview which instances a set of selectors targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var sf selectorFile
			if err := decodeFile(cmd, selPath, &sf); err != nil {
				return err
			}
			var instances []snooze.Instance
			if err := decodeFile(cmd, instPath, &instances); err != nil {
				return err
			}
			op := a.cfg.Operator()
			if sf.Operator != nil {
				op = *sf.Operator
			}
			if cmd.Flags().Changed("operator") {
				var err error
				if op, err = snooze.ParseOperator(opFlag); err != nil {
					return err
				}
			}
			target, err := a.target(sf.Selectors, op)
			if err != nil {
				return err
			}
			out := matchOutput{
				Operator: op.String(),
				Matched:  []string{},
				Total:    len(instances),
			}
			for _, sel := range sf.Selectors {
				out.Rules = append(out.Rules, snooze.DescribeSelectorRule(sel))
			}
			for _, inst := range instances {
				if target.Match(inst) {
					out.Matched = append(out.Matched, inst.Name)
				}
			}
			a.log.Debugw("selectors evaluated",
				"matched", len(out.Matched), "total", out.Total)
			return encode(cmd, out)
		},
	}
	cmd.Flags().StringVarP(&selPath, "selectors", "s", "",
		"YAML file holding operator and selectors")
	cmd.Flags().StringVarP(&instPath, "instances", "i", "",
		"YAML file holding a list of instances")
	cmd.Flags().StringVar(&opFlag, "operator", "",
		"override the operator: and, or")
	_ = cmd.MarkFlagRequired("selectors")
	_ = cmd.MarkFlagRequired("instances")
	return cmd
}

// target enforces the configured pattern cap and compiles selectors.
func (a *app) target(
	selectors []snooze.Selector, op snooze.Operator,
) (*snooze.Target, error) {
	if err := a.cfg.CheckPatterns(selectors); err != nil {
		return nil, err
	}
	t, err := snooze.NewTarget(selectors, op)
	if err != nil {
		return nil, fmt.Errorf("invalid selectors: %w", err)
	}
	return t, nil
}
