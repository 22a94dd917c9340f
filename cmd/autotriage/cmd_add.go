package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kiranshivaraju/autotriage/internal/feedback"
	"github.com/kiranshivaraju/autotriage/internal/logging"
	"github.com/kiranshivaraju/autotriage/pkg/models"
	"github.com/spf13/cobra"
)

func newAddFeedbackCmd(e *env) *cobra.Command {
	var in models.NewFeedback

	cmd := &cobra.Command{
		Use:   "add-feedback",
		Short: "Add a feedback item to the database",
		Long: `Add a customer complaint. Missing values are prompted for on stdin.

Examples:
  autotriage add-feedback --make Toyota --model Corolla --text "Brakes squeal when stopping"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			fields := []struct {
				label string
				dst   *string
			}{
				{"Car make", &in.CarMake},
				{"Car model", &in.CarModel},
				{"Text", &in.Text},
			}
			for _, f := range fields {
				if strings.TrimSpace(*f.dst) != "" {
					continue
				}
				v, err := p.ask(f.label)
				if err != nil {
					return failed("read "+strings.ToLower(f.label), err)
				}
				*f.dst = v
			}

			svc := feedback.NewService(e.store, logging.New("feedback"))
			fb, err := svc.Create(cmd.Context(), in)
			if err != nil {
				return failed("save feedback", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Feedback saved")
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(fb)
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.CarMake, "make", "", "Manufacturer of the car")
	f.StringVar(&in.CarModel, "model", "", "Model of the car")
	f.StringVar(&in.Text, "text", "", "Feedback text from the customer")
	return cmd
}

// prompter reads one answer per line from an interactive input.
type prompter struct {
	r   *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{r: bufio.NewReader(in), out: out}
}

func (p *prompter) ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
