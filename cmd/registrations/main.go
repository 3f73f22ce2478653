// Command registrations submits and lists registrations, either through a
// running server or directly against a document store.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ruteri/registration-ledger/api/client"
	"github.com/ruteri/registration-ledger/cmd/flags"
	"github.com/ruteri/registration-ledger/registration"
	"github.com/urfave/cli/v2"
)

var serverURLFlag = &cli.StringFlag{
	Name:    "server",
	Value:   "http://127.0.0.1:8080",
	Usage:   "registration server base URL",
	EnvVars: []string{"REGISTRATION_SERVER"},
}

var directFlag = &cli.BoolFlag{
	Name:  "direct",
	Usage: "read the document store given by the store flags instead of asking the server",
}

func main() {
	app := &cli.App{
		Name:  "registrations",
		Usage: "Registration ledger client",
		Flags: append([]cli.Flag{serverURLFlag}, flags.LogFlags...),
		Commands: []*cli.Command{
			{
				Name:      "register",
				Usage:     "Submit a registration",
				ArgsUsage: "<student_name> <email> <transaction_id>",
				Action:    registerAction,
			},
			{
				Name:   "list",
				Usage:  "Print the stored registrations as JSON",
				Flags:  append([]cli.Flag{directFlag}, flags.StoreFlags...),
				Action: listAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func registerAction(cCtx *cli.Context) error {
	if cCtx.NArg() != 3 {
		return errors.New("expected <student_name> <email> <transaction_id>")
	}

	c := client.NewClient(cCtx.String(serverURLFlag.Name), nil)
	resp, err := c.Register(cCtx.Context, registration.Submission{
		StudentName:   cCtx.Args().Get(0),
		Email:         cCtx.Args().Get(1),
		TransactionID: cCtx.Args().Get(2),
	})
	if err != nil {
		return err
	}

	if err := printJSON(resp); err != nil {
		return err
	}
	if resp.Error {
		return cli.Exit("", 1)
	}
	return nil
}

func listAction(cCtx *cli.Context) error {
	if !cCtx.Bool(directFlag.Name) {
		list, err := client.NewClient(cCtx.String(serverURLFlag.Name), nil).Registrations(cCtx.Context)
		if err != nil {
			return err
		}
		return printJSON(list)
	}

	logger := flags.SetupLogger(cCtx)
	store, err := flags.BuildStore(cCtx, logger)
	if err != nil {
		return fmt.Errorf("failed to create document store: %w", err)
	}

	list, err := registration.NewRegistrar(store, registration.Config{}, logger).List(cCtx.Context)
	if err != nil {
		return err
	}
	return printJSON(list)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
