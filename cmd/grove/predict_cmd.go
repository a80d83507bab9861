package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pbanos/grove/dataset"
	"github.com/pbanos/grove/dataset/inputsample"
	"github.com/pbanos/grove/dataset/mongodataset"
	"github.com/pbanos/grove/dataset/sqldataset"
	"github.com/pbanos/grove/feature"
	"github.com/pbanos/grove/server"
)

type predictCmdConfig struct {
	*modelCmdConfig
	dataInput      string
	query          string
	collection     string
	probabilities  bool
	interactive    bool
	undefinedValue string
}

type promptFeatureValueRequester struct {
	w              io.Writer
	undefinedValue string
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{modelCmdConfig: &modelCmdConfig{rootCmdConfig: rootConfig}}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict values for samples",
		Long:  `Use a tree or forest to predict the class, or the class probabilities, of every sample on a CSV or YML file, or on the result of an SQL query, writing them as CSV to the standard output`,
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
			config.Logf("Loaded %s asking about %d features", model.Kind(), len(model.FeatureNames()))
			samples, err := config.samples(model, os.Stdin)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			config.Logf("Predicting for %d samples...", len(samples))
			err = config.predict(model, samples, os.Stdout)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(4)
			}
			config.Logf("Done")
		},
	}
	config.addFlags(cmd)
	cmd.Flags().StringVarP(&(config.dataInput), "input", "i", "", "path to a CSV or YML file, SQLite3 database file, or PostgreSQL or MongoDB URL with the samples (defaults to CSV on STDIN)")
	cmd.Flags().StringVarP(&(config.query), "query", "q", "", "SQL query returning the samples, with a column per feature (required with an SQL database input), or JSON filter for the MongoDB collection")
	cmd.Flags().StringVar(&(config.collection), "collection", mongodataset.DefaultCollection, "MongoDB collection with the samples")
	cmd.Flags().BoolVarP(&(config.probabilities), "proba", "p", false, "predict class probabilities instead of classes")
	cmd.Flags().BoolVarP(&(config.interactive), "interactive", "I", false, "predict for a single sample answering questions about its features on STDIN")
	cmd.Flags().StringVarP(&(config.undefinedValue), "undefined-value", "u", dataset.UndefinedValue, "value to input to define a sample's value for a feature as undefined when interactive")
	return cmd
}

func (pcc *predictCmdConfig) Validate() error {
	if err := pcc.modelCmdConfig.Validate(); err != nil {
		return err
	}
	if pcc.interactive {
		if pcc.dataInput != "" || pcc.query != "" {
			return fmt.Errorf("interactive flag cannot be combined with input or query flags")
		}
		return nil
	}
	if mongodataset.IsURL(pcc.dataInput) {
		_, err := mongodataset.ParseQuery(pcc.query)
		return err
	}
	isDB := pcc.dataInput != "" && sqldataset.IsDSN(pcc.dataInput)
	if isDB && pcc.query == "" {
		return fmt.Errorf("required query flag was not set")
	}
	if !isDB && pcc.query != "" {
		return fmt.Errorf("query flag is only supported with database inputs")
	}
	return nil
}

func (pcc *predictCmdConfig) samples(model server.Model, in io.Reader) ([]feature.Sample, error) {
	if pcc.interactive {
		fvr := &promptFeatureValueRequester{w: os.Stderr, undefinedValue: pcc.undefinedValue}
		sample, err := inputsample.Read(in, model.FeatureNames(), fvr, pcc.undefinedValue)
		if err != nil {
			return nil, err
		}
		return []feature.Sample{sample}, nil
	}
	if mongodataset.IsURL(pcc.dataInput) {
		return pcc.mongoSamples()
	}
	if pcc.dataInput == "" || !sqldataset.IsDSN(pcc.dataInput) {
		pcc.Logf("Reading samples from %q...", pcc.dataInput)
		_, samples, err := dataset.ReadFile(pcc.dataInput)
		return samples, err
	}
	pcc.Logf("Querying samples from database...")
	db, err := sqldataset.Open(pcc.dataInput)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	_, samples, err := sqldataset.Read(pcc.Context(), db, pcc.query)
	return samples, err
}

func (pcc *predictCmdConfig) mongoSamples() ([]feature.Sample, error) {
	query, err := mongodataset.ParseQuery(pcc.query)
	if err != nil {
		return nil, err
	}
	pcc.Logf("Reading samples from mongodb collection %s...", pcc.collection)
	session, err := mongodataset.Dial(pcc.dataInput)
	if err != nil {
		return nil, err
	}
	defer session.Close()
	_, samples, err := mongodataset.Read(pcc.Context(), session, pcc.collection, query)
	return samples, err
}

func (pcc *predictCmdConfig) predict(model server.Model, samples []feature.Sample, out io.Writer) error {
	w := csv.NewWriter(out)
	if pcc.probabilities {
		probs, err := model.PredictProbabilities(pcc.Context(), samples)
		if err != nil {
			return fmt.Errorf("predicting probabilities: %v", err)
		}
		for i, p := range probs {
			if i == 0 {
				header := make([]string, len(p))
				for j := range p {
					header[j] = fmt.Sprintf("p%d", j)
				}
				w.Write(header)
			}
			row := make([]string, len(p))
			for j, v := range p {
				row[j] = strconv.FormatFloat(v, 'f', -1, 64)
			}
			w.Write(row)
		}
	} else {
		values, err := model.Predict(pcc.Context(), samples)
		if err != nil {
			return fmt.Errorf("predicting: %v", err)
		}
		w.Write([]string{"prediction"})
		for _, v := range values {
			w.Write([]string{fmt.Sprint(v)})
		}
	}
	w.Flush()
	return w.Error()
}

func (pfvr *promptFeatureValueRequester) RequestValueFor(name string) error {
	_, err := fmt.Fprintf(pfvr.w, "Please provide the sample's %s:\n(valid values are real numbers, true, false or %s if undefined)\n", name, pfvr.undefinedValue)
	return err
}

func (pfvr *promptFeatureValueRequester) RejectValueFor(name string, value string) error {
	_, err := fmt.Fprintf(pfvr.w, "%s is not a valid value for the sample's %s. Please provide a real number, true, false or %s if undefined.\n", value, name, pfvr.undefinedValue)
	return err
}
