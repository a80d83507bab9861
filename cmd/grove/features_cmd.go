package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbanos/grove/feature"
	"github.com/pbanos/grove/feature/yaml"
)

type featuresCmdConfig struct {
	*modelCmdConfig
	metadataInput string
}

func featuresCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &featuresCmdConfig{modelCmdConfig: &modelCmdConfig{rootCmdConfig: rootConfig}}
	cmd := &cobra.Command{
		Use:   "features",
		Short: "List the features a model asks about",
		Long:  `List the features a tree or forest asks about, optionally checking they are all declared on a YML metadata file`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			defer config.ContextCancelFunc()()
			model, err := config.load()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			names := model.FeatureNames()
			if config.metadataInput != "" {
				config.Logf("Reading features from metadata at %s...", config.metadataInput)
				features, err := yaml.ReadFeaturesFromFile(config.metadataInput)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(3)
				}
				missing := feature.Missing(features.NewSample(), names)
				if len(missing) > 0 {
					fmt.Fprintf(os.Stderr, "features not declared on metadata: %s\n", strings.Join(missing, ", "))
					os.Exit(4)
				}
				config.Logf("All %d features of the %s are declared on metadata", len(names), model.Kind())
			}
			for _, name := range names {
				fmt.Println(name)
			}
		},
	}
	config.addFlags(cmd)
	cmd.Flags().StringVarP(&(config.metadataInput), "metadata", "m", "", "path to a YML file declaring the available features")
	return cmd
}
