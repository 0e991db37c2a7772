package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampaignStatusGraph(t *testing.T) {
	all := []CampaignStatus{CampaignOpen, CampaignAccepted, CampaignFulfilled, CampaignDiscarded}
	edges := map[CampaignStatus][]CampaignStatus{
		CampaignOpen:     {CampaignAccepted, CampaignDiscarded},
		CampaignAccepted: {CampaignFulfilled, CampaignDiscarded},
	}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, e := range edges[from] {
				want = want || e == to
			}
			assert.Equalf(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, CampaignFulfilled.Terminal())
	assert.True(t, CampaignDiscarded.Terminal())
	assert.False(t, CampaignAccepted.Terminal())
}

func TestOpenCampaignStatusGraph(t *testing.T) {
	assert.True(t, OpenCampaignPublished.CanTransition(OpenCampaignFulfilled))
	assert.True(t, OpenCampaignPublished.CanTransition(OpenCampaignDiscarded))
	assert.False(t, OpenCampaignPublished.CanTransition(OpenCampaignPublished))
	assert.False(t, OpenCampaignFulfilled.CanTransition(OpenCampaignDiscarded))
	assert.False(t, OpenCampaignDiscarded.CanTransition(OpenCampaignFulfilled))
	assert.Equal(t, OpenCampaignFulfilled, Outcome(true))
	assert.Equal(t, OpenCampaignDiscarded, Outcome(false))
}

func TestStatusText(t *testing.T) {
	b, err := json.Marshal(struct {
		C CampaignStatus     `json:"c"`
		O OpenCampaignStatus `json:"o"`
	}{CampaignAccepted, OpenCampaignPublished})
	require.NoError(t, err)
	assert.JSONEq(t, `{"c":"accepted","o":"published"}`, string(b))

	var s CampaignStatus
	require.NoError(t, s.UnmarshalText([]byte("discarded")))
	assert.Equal(t, CampaignDiscarded, s)
	require.Error(t, s.UnmarshalText([]byte("unfulfilled")))

	_, err = CampaignStatus(9).MarshalText()
	require.Error(t, err)
	assert.Equal(t, "CampaignStatus(9)", CampaignStatus(9).String())
}

func TestCampaignTransitionTo(t *testing.T) {
	c := &Campaign{}
	require.ErrorIs(t, c.TransitionTo(CampaignFulfilled), ErrInvalidState)
	require.NoError(t, c.TransitionTo(CampaignAccepted))
	require.NoError(t, c.TransitionTo(CampaignFulfilled))
	require.ErrorIs(t, c.TransitionTo(CampaignDiscarded), ErrInvalidState)
	assert.Equal(t, CampaignFulfilled, c.CampaignStatus)
}
