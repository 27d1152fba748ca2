// Package commands is the relayctl command tree: operator tooling for a
// running relay.
package commands

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dmitrijs2005/cipherrelay/internal/client"
)

// dial is a test seam.
var dial = func(addr string) (relayClient, error) {
	c, err := client.Dial(addr)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type relayClient interface {
	Stats(ctx context.Context, token string) (*structpb.Struct, error)
	PublicKeys(ctx context.Context) (map[string]string, error)
	Close() error
}

type options struct {
	addr    string
	timeout time.Duration
}

func Execute() error {
	return NewRootCmd(os.Stdout).Execute()
}

// NewRootCmd builds the command tree writing results to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "relayctl",
		Short:        "Operator tool for the cipherrelay server",
		SilenceUsage: true,
	}
	root.SetOut(out)

	root.PersistentFlags().StringVarP(&opts.addr, "addr", "a", "127.0.0.1:50051", "relay gRPC address")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(tokenCmd(), statsCmd(opts), keysCmd(opts))
	return root
}

func (o *options) withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, o.timeout)
}
