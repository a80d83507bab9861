package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pbanos/grove/config"
	"github.com/pbanos/grove/tree"
	"github.com/pbanos/grove/tree/json"
	"github.com/pbanos/grove/tree/redisstore"
)

type treeCmdConfig struct {
	*modelCmdConfig
	asJSON bool
}

func treeCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &treeCmdConfig{modelCmdConfig: &modelCmdConfig{rootCmdConfig: rootConfig}}
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show a decision tree",
		Long:  `Parse a tree export and print the tree rebuilt from it, as text or JSON`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			defer config.ContextCancelFunc()()
			out, err := config.show()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			fmt.Print(out)
		},
	}
	config.addFlags(cmd)
	cmd.Flags().BoolVar(&(config.asJSON), "json", false, "print the tree as JSON")
	return cmd
}

func (tcc *treeCmdConfig) Validate() error {
	if tcc.forestInput != "" {
		return fmt.Errorf("forest flag is not supported, show its trees one by one")
	}
	return tcc.modelCmdConfig.Validate()
}

func (tcc *treeCmdConfig) show() (string, error) {
	switch tcc.classType {
	case config.ClassBool:
		return showTree(tcc, tree.Bool)
	case config.ClassInt:
		return showTree(tcc, tree.Int)
	case config.ClassFloat:
		return showTree(tcc, tree.Float)
	}
	return showTree(tcc, tree.String)
}

func showTree[T any](tcc *treeCmdConfig, dec tree.Decoder[T]) (string, error) {
	var t *tree.Tree[T]
	var err error
	if tcc.treeInput != "" {
		tcc.Logf("Parsing tree at %s...", tcc.treeInput)
		t, err = tree.ParseFile(tcc.treeInput, dec)
	} else {
		tcc.Logf("Loading tree %s from redis...", tcc.redisKey)
		store, rc := tcc.redis.store()
		defer rc.Close()
		t, err = redisstore.LoadTree(tcc.Context(), store, tcc.redisKey, dec)
	}
	if err != nil {
		return "", err
	}
	tcc.Logf("Tree with %d nodes and %d leaves loaded", t.Len(), t.Leaves())
	if !tcc.asJSON {
		return t.String(), nil
	}
	buf := &bytes.Buffer{}
	if err = json.WriteJSONTree(t, json.NewNodeEncoder[T](), buf); err != nil {
		return "", fmt.Errorf("writing tree as JSON: %v", err)
	}
	buf.WriteString("\n")
	return buf.String(), nil
}
