package main

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/spf13/cobra"

	"github.com/pbanos/grove/forest"
	"github.com/pbanos/grove/tree"
)

type pushCmdConfig struct {
	*modelCmdConfig
	name string
}

func pushCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &pushCmdConfig{modelCmdConfig: &modelCmdConfig{rootCmdConfig: rootConfig}}
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Store a model on redis",
		Long:  `Store the export of a tree, or the exports in a forest archive, on redis under a name so that servers can load it`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			defer config.ContextCancelFunc()()
			exports, err := config.exports()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			store, rc := config.redis.store()
			defer rc.Close()
			if config.treeInput != "" {
				err = store.PutTree(config.Context(), config.name, exports[0])
			} else {
				err = store.PutForest(config.Context(), config.name, exports)
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			config.Logf("Stored %d exports as %s", len(exports), config.name)
		},
	}
	cmd.Flags().StringVarP(&(config.treeInput), "tree", "t", "", "path to a file with a tree exported as text")
	cmd.Flags().StringVarP(&(config.forestInput), "forest", "f", "", "path to a tar or tar.gz archive with a tree export per entry")
	cmd.Flags().StringVarP(&(config.name), "key", "k", "", "name to store the model under (required)")
	config.redis.addFlags(cmd)
	return cmd
}

func (pcc *pushCmdConfig) Validate() error {
	if (pcc.treeInput == "") == (pcc.forestInput == "") {
		return fmt.Errorf("exactly one of the tree and forest flags must be set")
	}
	if pcc.name == "" {
		return fmt.Errorf("required key flag was not set")
	}
	if pcc.redis.addr == "" {
		return fmt.Errorf("required redis flag was not set")
	}
	return nil
}

// exports reads the exports to push and checks every one of them parses
func (pcc *pushCmdConfig) exports() ([][]byte, error) {
	var exports [][]byte
	if pcc.treeInput != "" {
		data, err := ioutil.ReadFile(pcc.treeInput)
		if err != nil {
			return nil, fmt.Errorf("reading tree export from %s: %v", pcc.treeInput, err)
		}
		exports = append(exports, data)
	} else {
		f, err := os.Open(pcc.forestInput)
		if err != nil {
			return nil, fmt.Errorf("reading forest from %s: %v", pcc.forestInput, err)
		}
		defer f.Close()
		entries, err := forest.ReadExports(pcc.Context(), f, pcc.logger)
		if err != nil {
			return nil, fmt.Errorf("reading forest from %s: %v", pcc.forestInput, err)
		}
		for _, e := range entries {
			exports = append(exports, e.Data)
		}
	}
	for i, e := range exports {
		if _, err := tree.Parse(bytes.NewReader(e), tree.String); err != nil {
			return nil, fmt.Errorf("checking export %d: %v", i, err)
		}
	}
	if len(exports) == 0 {
		return nil, fmt.Errorf("no exports found")
	}
	return exports, nil
}
