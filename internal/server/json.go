package server

import (
	"github.com/analog-home/analog/internal/api"
	"github.com/analog-home/analog/internal/control"
	"github.com/analog-home/analog/internal/store"
)

func toState(snap *control.Snapshot) api.State {
	c := snap.Controls
	out := api.State{
		Controls: api.Controls{
			Temperature:        c.Temperature,
			DefaultTemperature: c.DefaultTemperature,
			TempSetAt:          c.TempSetAt,
			Vote1:              c.Votes[0],
			Vote2:              c.Votes[1],
			Vote3:              c.Votes[2],
			VoteLabel1:         c.VoteLabels[0],
			VoteLabel2:         c.VoteLabels[1],
			VoteLabel3:         c.VoteLabels[2],
			TrajectoryReason:   c.TrajectoryReason,
			UpdatedAt:          c.UpdatedAt,
		},
		Seeds: make([]api.Seed, len(snap.Seeds)),
	}
	if snap.Artifact != nil {
		a := toArtifact(snap.Artifact)
		out.Artifact = &a
	}
	for i, sd := range snap.Seeds {
		out.Seeds[i] = api.Seed{ID: sd.ID, Text: sd.Text, CreatedAt: sd.CreatedAt}
	}
	return out
}

func toArtifact(a *store.Artifact) api.Artifact {
	return api.Artifact{
		ID:             a.ID,
		CreatedAt:      a.CreatedAt,
		Brain:          a.Brain,
		Cycle:          a.Cycle,
		ArtifactType:   a.ArtifactType,
		Title:          a.Title,
		BodyMarkdown:   a.BodyMarkdown,
		Monologue:      a.Monologue,
		Channel:        a.Channel,
		SourcePlatform: a.SourcePlatform,
		SourceID:       a.SourceID,
		SourceParentID: a.SourceParentID,
		SourceURL:      a.SourceURL,
		SearchQueries:  a.SearchQueries,
		Temperature:    a.Temperature,
	}
}

func fromArtifact(a api.Artifact) store.Artifact {
	return store.Artifact{
		ID:             a.ID,
		Brain:          a.Brain,
		Cycle:          a.Cycle,
		ArtifactType:   a.ArtifactType,
		Title:          a.Title,
		BodyMarkdown:   a.BodyMarkdown,
		Monologue:      a.Monologue,
		Channel:        a.Channel,
		SourcePlatform: a.SourcePlatform,
		SourceID:       a.SourceID,
		SourceParentID: a.SourceParentID,
		SourceURL:      a.SourceURL,
		SearchQueries:  a.SearchQueries,
		Temperature:    a.Temperature,
	}
}
