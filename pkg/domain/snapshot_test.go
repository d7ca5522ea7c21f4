package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSnapshot(t *testing.T) {
	snap := NewSnapshot("s1", "onboarding", "init_greeting")

	assert.Equal(t, "onboarding", snap.Stage)
	assert.Equal(t, "init_greeting", snap.State)
	assert.Equal(t, 0, snap.Turn)
	assert.Equal(t, 0, snap.StageStartTurn)
	assert.Equal(t, -1, snap.DerailingStartTurn, "new snapshot must not be derailed")
	assert.Equal(t, []string{"init_greeting"}, snap.History)
}

func TestMarkStageCompletedIsMonotonic(t *testing.T) {
	snap := NewSnapshot("s1", "onboarding", "init_greeting")

	snap.MarkStageCompleted("content_politics_tech")
	snap.MarkStageCompleted("content_politics_tech")
	snap.MarkStageCompleted("content_psychology_society")

	assert.Equal(t, []string{"content_politics_tech", "content_psychology_society"}, snap.CompletedStages)
	assert.True(t, snap.StageCompleted("content_politics_tech"))
	assert.False(t, snap.StageCompleted("wrapup"))
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	snap := NewSnapshot("s1", "onboarding", "init_greeting")
	snap.MarkStageCompleted("content_politics_tech")

	clone := snap.Clone()
	clone.MarkStageCompleted("content_psychology_society")
	clone.History = append(clone.History, "ask_name")
	clone.State = "ask_name"

	assert.Equal(t, "init_greeting", snap.State)
	assert.Len(t, snap.CompletedStages, 1)
	assert.Len(t, snap.History, 1)
}
