package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSlotRows(t *testing.T) {
	before := testutil.ToFloat64(SlotRowsTotal.WithLabelValues("created"))

	RecordSlotRows("created", 2)
	RecordSlotRows("created", 0)

	assert.Equal(t, before+2, testutil.ToFloat64(SlotRowsTotal.WithLabelValues("created")))
}

func TestRecordSync(t *testing.T) {
	okBefore := testutil.ToFloat64(SyncTotal.WithLabelValues("webhook", "ok"))
	errBefore := testutil.ToFloat64(SyncTotal.WithLabelValues("webhook", "error"))

	RecordSync("webhook", nil)
	RecordSync("webhook", errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(SyncTotal.WithLabelValues("webhook", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(SyncTotal.WithLabelValues("webhook", "error")))
}
