package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/analog-home/analog/internal/api"
	"github.com/analog-home/analog/internal/client"
)

const agentTimeout = 15 * time.Second

// newClient returns a client for the server named by --url.
func newClient() *client.Client {
	return client.New(serverURL)
}

func agentContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, agentTimeout)
}

// --- state command ---

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the current controls, seeds and latest artifact",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := agentContext(cmd)
		defer cancel()

		st, err := newClient().State(ctx)
		if err != nil {
			return err
		}
		renderState(cmd.OutOrStdout(), st)
		return nil
	},
}

// --- seed command ---

var seedCmd = &cobra.Command{
	Use:   "seed <text>",
	Short: "Submit a seed idea to the inbox",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := agentContext(cmd)
		defer cancel()

		st, err := newClient().SubmitSeed(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seed accepted (%d shown)\n", len(st.Seeds))
		return nil
	},
}

// --- consume command ---

var consumeCmd = &cobra.Command{
	Use:   "consume <id>...",
	Short: "Delete seeds the agent has used",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]int64, 0, len(args))
		for _, a := range args {
			id, err := strconv.ParseInt(a, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid seed id %q", a)
			}
			ids = append(ids, id)
		}

		ctx, cancel := agentContext(cmd)
		defer cancel()

		n, err := newClient().ConsumeSeeds(ctx, ids)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Consumed %d of %d seeds\n", n, len(ids))
		return nil
	},
}

// --- trajectory command ---

var (
	trajectoryLabels      []string
	trajectoryReason      string
	trajectoryDefaultTemp float64
)

var trajectoryCmd = &cobra.Command{
	Use:   "trajectory",
	Short: "Start a new voting cycle with fresh labels",
	Long: "Replace the three vote labels and reason, zero the tally and clear every visitor's quota. " +
		"--default-temperature also moves the decay target.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(trajectoryLabels) != 3 {
			return fmt.Errorf("--labels needs exactly 3 labels, got %d", len(trajectoryLabels))
		}
		t := api.Trajectory{
			Label1: trajectoryLabels[0],
			Label2: trajectoryLabels[1],
			Label3: trajectoryLabels[2],
			Reason: trajectoryReason,
		}
		if cmd.Flags().Changed("default-temperature") {
			d := trajectoryDefaultTemp
			t.DefaultTemperature = &d
		}

		ctx, cancel := agentContext(cmd)
		defer cancel()

		st, err := newClient().SetTrajectory(ctx, t)
		if err != nil {
			return err
		}
		renderState(cmd.OutOrStdout(), st)
		return nil
	},
}

// --- publish command ---

var (
	publishID          int64
	publishTitle       string
	publishBody        string
	publishMonologue   string
	publishBrain       string
	publishType        string
	publishChannel     string
	publishTemperature float64
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Append an artifact to the log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := api.Artifact{
			ID:           publishID,
			Title:        publishTitle,
			BodyMarkdown: publishBody,
			Monologue:    publishMonologue,
			Brain:        publishBrain,
			ArtifactType: publishType,
			Channel:      publishChannel,
		}
		if a.ID == 0 {
			a.ID = time.Now().Unix()
		}
		if cmd.Flags().Changed("temperature") {
			t := publishTemperature
			a.Temperature = &t
		}
		return publish(cmd, a)
	},
}

func publish(cmd *cobra.Command, a api.Artifact) error {
	ctx, cancel := agentContext(cmd)
	defer cancel()

	if _, err := newClient().Publish(ctx, a); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote artifact %d\n", a.ID)
	return nil
}

// --- push-fake-cycle command ---

var pushFakeCycleCmd = &cobra.Command{
	Use:   "push-fake-cycle",
	Short: "Publish a placeholder artifact to prove the loop end to end",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := agentContext(cmd)
		defer cancel()

		st, err := newClient().State(ctx)
		if err != nil {
			return err
		}
		return publish(cmd, fakeArtifact(time.Now(), st.Controls.Temperature))
	},
}

func fakeArtifact(now time.Time, temperature float64) api.Artifact {
	id := now.Unix()
	return api.Artifact{
		ID:           id,
		Brain:        "fake",
		ArtifactType: "post",
		Title:        fmt.Sprintf("Cycle Artifact %d", id),
		BodyMarkdown: "This is a **fake artifact** written by `analog push-fake-cycle`.\n\n" +
			"- It proves the end-to-end loop works.\n" +
			"- Next: replace this with real agent output.\n",
		Monologue: "I wake, I sample the air. A soft bias toward continuity.\n" +
			"The dial is warm. The crowd wants reflect.\n",
		SourcePlatform: "analog-cli",
		SourceID:       uuid.NewString(),
		Temperature:    &temperature,
	}
}

func init() {
	trajectoryCmd.Flags().StringSliceVar(&trajectoryLabels, "labels", nil, "three comma-separated vote labels")
	trajectoryCmd.Flags().StringVar(&trajectoryReason, "reason", "", "why this trajectory was chosen")
	trajectoryCmd.Flags().Float64Var(&trajectoryDefaultTemp, "default-temperature", 0, "new decay target")
	trajectoryCmd.MarkFlagRequired("labels")

	publishCmd.Flags().Int64Var(&publishID, "id", 0, "artifact id (default current unix time)")
	publishCmd.Flags().StringVar(&publishTitle, "title", "", "artifact title")
	publishCmd.Flags().StringVar(&publishBody, "body", "", "markdown body")
	publishCmd.Flags().StringVar(&publishMonologue, "monologue", "", "public internal monologue")
	publishCmd.Flags().StringVar(&publishBrain, "brain", "", "which model produced it")
	publishCmd.Flags().StringVar(&publishType, "type", "", "artifact type (default post)")
	publishCmd.Flags().StringVar(&publishChannel, "channel", "", "output channel")
	publishCmd.Flags().Float64Var(&publishTemperature, "temperature", 0, "temperature the artifact was generated at")
}
