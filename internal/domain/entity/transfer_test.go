package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/dispensario-api/internal/domain"
	"github.com/jhoicas/dispensario-api/internal/domain/entity"
)

func TestTransfer_Transitions(t *testing.T) {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		from   entity.TransferStatus
		action entity.TransferAction
		want   entity.TransferStatus
		ok     bool
	}{
		{entity.TransferPending, entity.TransferSend, entity.TransferInTransit, true},
		{entity.TransferPending, entity.TransferCancel, entity.TransferCancelled, true},
		{entity.TransferPending, entity.TransferReceive, entity.TransferPending, false},
		{entity.TransferInTransit, entity.TransferReceive, entity.TransferReceived, true},
		{entity.TransferInTransit, entity.TransferCancel, entity.TransferCancelled, true},
		{entity.TransferInTransit, entity.TransferSend, entity.TransferInTransit, false},
		{entity.TransferReceived, entity.TransferCancel, entity.TransferReceived, false},
		{entity.TransferCancelled, entity.TransferSend, entity.TransferCancelled, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.from)+"_"+string(tc.action), func(t *testing.T) {
			tr := &entity.Transfer{ID: "t1", Status: tc.from}
			err := tr.Apply(tc.action, now)
			if !tc.ok {
				assert.ErrorIs(t, err, domain.ErrInvalidTransition)
				assert.Equal(t, tc.from, tr.Status, "una transición rechazada no cambia el estado")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, tr.Status)
			assert.Equal(t, now, tr.UpdatedAt)
		})
	}
}

func TestTransfer_ApplyStampsDates(t *testing.T) {
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	tr := &entity.Transfer{ID: "t1", Status: entity.TransferPending}
	require.NoError(t, tr.Apply(entity.TransferSend, now))
	require.NotNil(t, tr.SentAt)
	later := now.Add(time.Hour)
	require.NoError(t, tr.Apply(entity.TransferReceive, later))
	require.NotNil(t, tr.ReceivedAt)
	assert.Equal(t, later, *tr.ReceivedAt)
	assert.Nil(t, tr.CancelledAt)
	assert.True(t, tr.Status.Terminal())
}
