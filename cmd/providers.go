package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/langid/internal/provider"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the configured provider panel",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initDetect("detect", false)
		if err != nil {
			return err
		}

		var text *provider.Descriptor
		if env.Panel.Text != nil {
			d := provider.SafeTextDescriptor(env.Panel.Text)
			text = &d
		}
		renderPanel(cmd.OutOrStdout(), env.Panel.Registry.Descriptors(), text, env.Panel.Breakers.States())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
