package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lldsync/internal/ir"
	"github.com/roach88/lldsync/internal/queryir"
	"github.com/roach88/lldsync/internal/testutil"
)

var cpuTags = []string{
	"INSERT INTO trigger_tag (triggertagid, triggerid, tag, value) VALUES (1, 500, 'cpu', ' {#CPUNAME} ')",
	"INSERT INTO trigger_tag (triggertagid, triggerid, tag, value) VALUES (2, 500, 'scope', 'load')",
}

const discoveredTagValues = "SELECT value FROM trigger_tag WHERE triggerid<>500 ORDER BY triggertagid"

func TestReconcileTriggerTags_CreatesTagsPerTrigger(t *testing.T) {
	h := newHarness(t, testutil.TriggerFixture, cpuTags)

	report, err := h.engine.ReconcileTriggers(t.Context(), testutil.TriggerPrototype, []ir.Row{
		cpuRow("cpu0", 100),
		cpuRow("cpu1", 101),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 4, report.TagsCreated)
	assert.Empty(t, report.Problems)
	assert.Equal(t, 1, h.rec.Count(queryir.Insert{}, "trigger_tag"))

	assert.Equal(t, []uint64{3, 4, 5, 6}, h.ids(t, "SELECT triggertagid FROM trigger_tag WHERE triggerid<>500 ORDER BY triggertagid"))
	assert.Equal(t, []uint64{501, 501, 502, 502}, h.ids(t, "SELECT triggerid FROM trigger_tag WHERE triggerid<>500 ORDER BY triggertagid"))
	assert.Equal(t, []string{"cpu0", "load", "cpu1", "load"}, h.texts(t, discoveredTagValues))

	h.rec.Reset()
	report, err = h.engine.ReconcileTriggers(t.Context(), testutil.TriggerPrototype, []ir.Row{
		cpuRow("cpu0", 100),
		cpuRow("cpu1", 101),
	})
	require.NoError(t, err)
	assert.False(t, report.Changed())
	assert.Empty(t, h.rec.Statements)
}

func TestReconcileTriggerTags_PrototypeChangeUpdatesTags(t *testing.T) {
	h := newHarness(t, testutil.TriggerFixture, cpuTags)
	rows := []ir.Row{cpuRow("cpu0", 100), cpuRow("cpu1", 101)}

	_, err := h.engine.ReconcileTriggers(t.Context(), testutil.TriggerPrototype, rows)
	require.NoError(t, err)

	h.exec(t, "UPDATE trigger_tag SET value='usage' WHERE triggertagid=2")
	h.rec.Reset()

	report, err := h.engine.ReconcileTriggers(t.Context(), testutil.TriggerPrototype, rows)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 2, report.TagsUpdated)
	assert.True(t, report.Changed())
	require.Len(t, h.rec.Statements, 2)
	assert.Equal(t, "UPDATE trigger_tag SET value=? WHERE triggertagid=?", h.rec.Statements[0].SQL)
	assert.Equal(t, []any{"usage", uint64(4)}, h.rec.Statements[0].Args)
	assert.Equal(t, []string{"cpu0", "usage", "cpu1", "usage"}, h.texts(t, discoveredTagValues))
}

func TestReconcileTriggerTags_SurplusTagsAreDeleted(t *testing.T) {
	h := newHarness(t, testutil.TriggerFixture, cpuTags)
	rows := []ir.Row{cpuRow("cpu0", 100)}

	_, err := h.engine.ReconcileTriggers(t.Context(), testutil.TriggerPrototype, rows)
	require.NoError(t, err)

	h.exec(t, "DELETE FROM trigger_tag WHERE triggertagid=2")
	h.rec.Reset()

	report, err := h.engine.ReconcileTriggers(t.Context(), testutil.TriggerPrototype, rows)
	require.NoError(t, err)

	assert.Equal(t, 1, report.TagsDeleted)
	assert.Equal(t, 1, h.rec.Count(queryir.Delete{}, "trigger_tag"))
	assert.Equal(t, []uint64{3}, h.ids(t, "SELECT triggertagid FROM trigger_tag WHERE triggerid=501"))
}

func TestReconcileTriggerTags_DuplicatePairDropsNewTrigger(t *testing.T) {
	h := newHarness(t, testutil.TriggerFixture, cpuTags)
	h.exec(t, "INSERT INTO trigger_tag (triggertagid, triggerid, tag, value) VALUES (3, 500, 'cpu', 'cpu0')")

	report, err := h.engine.ReconcileTriggers(t.Context(), testutil.TriggerPrototype, []ir.Row{
		cpuRow("cpu0", 100),
		cpuRow("cpu1", 101),
	})
	require.NoError(t, err)

	require.Len(t, report.Problems, 1)
	assert.Equal(t, ErrCodeDuplicate, report.Problems[0].Code)
	assert.Equal(t, `Cannot create trigger tag: tag "cpu","cpu0" already exists.`, report.Problems[0].Message)

	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 3, report.TagsCreated)
	assert.Equal(t, []string{"CPU load on cpu1"}, h.texts(t, "SELECT description FROM triggers WHERE flags=4"))
	assert.Equal(t, []string{"cpu1", "load", "cpu0"}, h.texts(t, discoveredTagValues))
}

func TestReconcileTriggerTags_InvalidChangeDeletesExistingTag(t *testing.T) {
	h := newHarness(t, testutil.TriggerFixture, cpuTags)
	rows := []ir.Row{cpuRow("cpu0", 100)}

	_, err := h.engine.ReconcileTriggers(t.Context(), testutil.TriggerPrototype, rows)
	require.NoError(t, err)

	h.exec(t, "UPDATE trigger_tag SET value='"+strings.Repeat("x", 256)+"' WHERE triggertagid=2")
	h.rec.Reset()

	report, err := h.engine.ReconcileTriggers(t.Context(), testutil.TriggerPrototype, rows)
	require.NoError(t, err)

	require.Len(t, report.Problems, 1)
	assert.Equal(t, ErrCodeTooLong, report.Problems[0].Code)
	assert.True(t, strings.HasPrefix(report.Problems[0].Message, `Cannot create trigger tag: value "xxx`))
	assert.Equal(t, uint64(501), report.Problems[0].EntityID)

	assert.Equal(t, 1, report.TagsDeleted)
	assert.Equal(t, 0, h.rec.Count(queryir.Update{}, "trigger_tag"))
	assert.Equal(t, []string{"cpu0"}, h.texts(t, "SELECT value FROM trigger_tag WHERE triggerid=501"))
}

func TestReconcileTriggerTags_InvalidNewTagDropsTrigger(t *testing.T) {
	h := newHarness(t, testutil.TriggerFixture, cpuTags)
	h.exec(t, "INSERT INTO trigger_tag (triggertagid, triggerid, tag, value) VALUES (3, 500, 'name', '"+
		strings.Repeat("x", 250)+"{#CPUNAME}')")

	report, err := h.engine.ReconcileTriggers(t.Context(), testutil.TriggerPrototype, []ir.Row{
		cpuRow("cpu0", 100),
		cpuRow("cpu100", 101),
	})
	require.NoError(t, err)

	require.Len(t, report.Problems, 1)
	assert.Equal(t, ErrCodeTooLong, report.Problems[0].Code)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 3, report.TagsCreated)
	assert.Equal(t, []string{"CPU load on cpu0"}, h.texts(t, "SELECT description FROM triggers WHERE flags=4"))
}

func TestReconcileTriggerTags_DroppedTriggerSkipsTagChecks(t *testing.T) {
	h := newHarness(t, testutil.TriggerFixture, cpuTags)

	report, err := h.engine.ReconcileTriggers(t.Context(), testutil.TriggerPrototype, []ir.Row{
		cpuRow("cpu\xff", 100),
		cpuRow("cpu1", 101),
	})
	require.NoError(t, err)

	require.Len(t, report.Problems, 1)
	assert.Equal(t, ErrCodeInvalidUTF8, report.Problems[0].Code)
	assert.Equal(t, "Cannot create trigger: value \"CPU load on cpu?\" has invalid UTF-8 sequence.", report.Problems[0].Message)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 2, report.TagsCreated)
	assert.Equal(t, []string{"cpu1", "load"}, h.texts(t, discoveredTagValues))
}
