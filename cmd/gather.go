package cmd

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	nberrors "github.com/netbirdio/iceagent/errors"
)

var gatherCmd = &cobra.Command{
	Use:   "gather",
	Short: "Print local ICE credentials and candidates",
	Long:  "Builds one stream, waits until candidate gathering is done and prints the SDP attributes a peer needs",
	Args:  cobra.NoArgs,
	RunE:  gather,
}

func gather(cmd *cobra.Command, _ []string) (err error) {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	rt, err := startRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.close(); closeErr != nil {
			err = nberrors.FormatErrorOrNil(multierror.Append(err, closeErr))
		}
	}()

	a, err := rt.newAgent(false)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}

	stream, err := rt.buildStream(a)
	if err != nil {
		return fmt.Errorf("build stream: %w", err)
	}
	defer stream.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "a=ice-ufrag:%s\n", stream.LocalUfrag())
	fmt.Fprintf(out, "a=ice-pwd:%s\n", stream.LocalPwd())

	candidates, err := stream.Candidates(ctx)
	for _, c := range candidates {
		fmt.Fprintf(out, "a=candidate:%s\n", c.Marshal())
	}
	if err != nil {
		return fmt.Errorf("gather candidates: %w", err)
	}
	return nil
}
