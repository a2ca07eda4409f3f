package editor_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbio/internal/domain"
	"linkbio/internal/editor"
)

// ── helpers ────────────────────────────────────────────────

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("b%d", n)
	}
}

func newList(t *testing.T, opts ...editor.ListOption) *editor.BlockList {
	t.Helper()
	return editor.NewBlockList(append([]editor.ListOption{editor.WithIDGenerator(seqIDs())}, opts...)...)
}

// listOf builds a list holding text blocks whose ids are the given names.
func listOf(t *testing.T, ids ...string) *editor.BlockList {
	t.Helper()
	i := 0
	l := editor.NewBlockList(editor.WithIDGenerator(func() string {
		id := ids[i]
		i++
		return id
	}))
	for range ids {
		_, err := l.Append(domain.BlockKindText)
		require.NoError(t, err)
	}
	return l
}

// ── insert ─────────────────────────────────────────────────

func TestInsert_AppliesDefaults(t *testing.T) {
	l := newList(t)

	b, err := l.Append(domain.BlockKindLink)
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)
	require.NotNil(t, b.Link)
	assert.Equal(t, "Novo Link", b.Link.Label)
	assert.Equal(t, "#", b.Link.Href)
	assert.Equal(t, "#2563eb", b.Link.BackgroundColor)
	assert.Equal(t, "#E2E8F0", b.Link.BorderColor)
	assert.False(t, b.Link.ShowIcon)

	img, err := l.Append(domain.BlockKindImage)
	require.NoError(t, err)
	assert.Equal(t, "Nova Imagem", img.Image.Alt)

	txt, err := l.Append(domain.BlockKindText)
	require.NoError(t, err)
	assert.Equal(t, "Novo Texto", txt.Text.Content)
}

func TestInsert_AtPosition(t *testing.T) {
	l := newList(t)
	for i := 0; i < 3; i++ {
		_, err := l.Append(domain.BlockKindText)
		require.NoError(t, err)
	}

	b, err := l.Insert(domain.BlockKindImage, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b4", "b2", "b3"}, l.IDs())
	assert.Equal(t, 1, l.IndexOf(b.ID))

	_, err = l.Insert(domain.BlockKindText, 0)
	require.NoError(t, err)
	assert.Equal(t, "b5", l.IDs()[0])

	// out of range appends
	_, err = l.Insert(domain.BlockKindText, 99)
	require.NoError(t, err)
	_, err = l.Insert(domain.BlockKindText, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b5", "b1", "b4", "b2", "b3", "b6", "b7"}, l.IDs())
}

func TestInsert_RegeneratesCollidingIDs(t *testing.T) {
	ids := []string{"x", "x", "y"}
	i := 0
	l := editor.NewBlockList(editor.WithIDGenerator(func() string {
		id := ids[i]
		i++
		return id
	}))
	_, _ = l.Append(domain.BlockKindText)
	_, _ = l.Append(domain.BlockKindText)
	assert.Equal(t, []string{"x", "y"}, l.IDs())
}

func TestInsert_UnknownKind(t *testing.T) {
	l := newList(t)
	_, err := l.Append(domain.BlockKind("video"))
	assert.ErrorIs(t, err, domain.ErrUnknownKind)
	assert.Equal(t, 0, l.Len())
}

func TestInsert_QuotaPerPlan(t *testing.T) {
	cases := []struct {
		plan  domain.PlanTier
		limit int
	}{
		{domain.PlanFree, 5},
		{domain.PlanBasic, 16},
	}
	for _, tc := range cases {
		t.Run(string(tc.plan), func(t *testing.T) {
			l := newList(t, editor.WithPolicy(editor.PlanPolicy(tc.plan, "https://example.com/plans")))
			for i := 0; i < tc.limit; i++ {
				_, err := l.Append(domain.BlockKindLink)
				require.NoError(t, err)
			}
			_, err := l.Append(domain.BlockKindLink)
			require.ErrorIs(t, err, domain.ErrQuotaExceeded)

			var qe *domain.QuotaError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, tc.limit, qe.Limit)
			assert.Equal(t, "https://example.com/plans", qe.UpgradeURL)
			assert.Equal(t, tc.limit, l.Len())
		})
	}
}

func TestInsert_PremiumUnbounded(t *testing.T) {
	l := newList(t, editor.WithPolicy(editor.PlanPolicy(domain.PlanPremium, "")))
	for i := 0; i < 40; i++ {
		_, err := l.Append(domain.BlockKindText)
		require.NoError(t, err)
	}
	assert.Equal(t, 40, l.Len())
}

func TestInsert_TrackingNeedsPremium(t *testing.T) {
	l := newList(t, editor.WithPolicy(editor.PlanPolicy(domain.PlanBasic, "")))
	_, err := l.Append(domain.BlockKindTracking)
	assert.ErrorIs(t, err, domain.ErrFeatureLocked)
	assert.Equal(t, 0, l.Len())

	p := newList(t, editor.WithPolicy(editor.PlanPolicy(domain.PlanPremium, "")))
	_, err = p.Append(domain.BlockKindTracking)
	assert.NoError(t, err)
}

// ── remove / update ────────────────────────────────────────

func TestRemove(t *testing.T) {
	l := listOf(t, "A", "B", "C")
	assert.True(t, l.Remove("B"))
	assert.Equal(t, []string{"A", "C"}, l.IDs())
	assert.False(t, l.Remove("B"), "second remove is a no-op")
	assert.Equal(t, []string{"A", "C"}, l.IDs())
}

func TestUpdate_PreservesOtherFieldsAndPosition(t *testing.T) {
	l := newList(t)
	_, _ = l.Append(domain.BlockKindText)
	link, _ := l.Append(domain.BlockKindLink)
	_, _ = l.Append(domain.BlockKindText)

	found, err := l.Update(link.ID, domain.LinkPatch{Label: domain.Ptr("Shop"), ShowIcon: domain.Ptr(true)})
	require.NoError(t, err)
	assert.True(t, found)

	got, ok := l.Get(link.ID)
	require.True(t, ok)
	assert.Equal(t, "Shop", got.Link.Label)
	assert.True(t, got.Link.ShowIcon)
	assert.Equal(t, "#", got.Link.Href)
	assert.Equal(t, "#2563eb", got.Link.BackgroundColor)
	assert.Equal(t, 1, l.IndexOf(link.ID))
}

func TestUpdate_KindIsImmutable(t *testing.T) {
	l := newList(t)
	txt, _ := l.Append(domain.BlockKindText)

	found, err := l.Update(txt.ID, domain.LinkPatch{Label: domain.Ptr("nope")})
	assert.True(t, found)
	assert.ErrorIs(t, err, domain.ErrKindMismatch)

	got, _ := l.Get(txt.ID)
	assert.Equal(t, domain.BlockKindText, got.Kind)
	assert.Nil(t, got.Link)
	assert.Equal(t, "Novo Texto", got.Text.Content)
}

func TestUpdate_RejectsInvalidEnum(t *testing.T) {
	l := newList(t)
	txt, _ := l.Append(domain.BlockKindText)
	size := domain.TextSize("text-9xl")

	_, err := l.Update(txt.ID, domain.TextPatch{Size: &size, Content: domain.Ptr("changed")})
	assert.ErrorIs(t, err, domain.ErrInvalidValue)

	got, _ := l.Get(txt.ID)
	assert.Equal(t, "Novo Texto", got.Text.Content, "failed patch must not partially apply")
}

func TestUpdate_AbsentIsNoop(t *testing.T) {
	l := listOf(t, "A")
	found, err := l.Update("missing", domain.TextPatch{Content: domain.Ptr("x")})
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestBlocks_ReturnsCopies(t *testing.T) {
	l := newList(t)
	b, _ := l.Append(domain.BlockKindLink)

	bs := l.Blocks()
	bs[0].Link.Label = "mutated"

	got, _ := l.Get(b.ID)
	assert.Equal(t, "Novo Link", got.Link.Label)
}

// ── reorder ────────────────────────────────────────────────

func TestReorder_MoveNotSwap(t *testing.T) {
	cases := []struct {
		name     string
		from, to string
		want     []string
	}{
		{"B onto A", "B", "A", []string{"B", "A", "C"}},
		{"A onto C", "A", "C", []string{"B", "C", "A"}},
		{"C onto A", "C", "A", []string{"C", "A", "B"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := listOf(t, "A", "B", "C")
			assert.True(t, l.Reorder(tc.from, tc.to))
			if diff := cmp.Diff(tc.want, l.IDs()); diff != "" {
				t.Errorf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReorder_LongListShiftsIntervening(t *testing.T) {
	l := listOf(t, "A", "B", "C", "D", "E")
	l.Reorder("A", "D")
	assert.Equal(t, []string{"B", "C", "D", "A", "E"}, l.IDs())
}

func TestReorder_BackAndForthIsNotIdentity(t *testing.T) {
	l := listOf(t, "A", "B", "C", "D")
	l.Reorder("A", "C") // B C A D
	assert.Equal(t, []string{"B", "C", "A", "D"}, l.IDs())
	l.Reorder("C", "A") // B A C D
	assert.Equal(t, []string{"B", "A", "C", "D"}, l.IDs())

	short := listOf(t, "A", "B")
	short.Reorder("A", "B")
	short.Reorder("B", "A")
	assert.Equal(t, []string{"A", "B"}, short.IDs())
}

func TestReorder_NoopCases(t *testing.T) {
	l := listOf(t, "A", "B", "C")
	assert.False(t, l.Reorder("B", "B"))
	assert.False(t, l.Reorder("A", "missing"))
	assert.False(t, l.Reorder("missing", "A"))
	assert.Equal(t, []string{"A", "B", "C"}, l.IDs())
}

// ── properties ─────────────────────────────────────────────

func TestRandomOps_KeepIDsUniqueAndKindsStable(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	l := newList(t)
	kinds := map[string]domain.BlockKind{}

	for step := 0; step < 500; step++ {
		ids := l.IDs()
		switch op := rng.Intn(4); {
		case op == 0 || len(ids) == 0:
			k := domain.Kinds[rng.Intn(len(domain.Kinds))]
			b, err := l.Insert(k, rng.Intn(len(ids)+2)-1)
			require.NoError(t, err)
			kinds[b.ID] = k
		case op == 1:
			id := ids[rng.Intn(len(ids))]
			l.Remove(id)
			delete(kinds, id)
		case op == 2:
			id := ids[rng.Intn(len(ids))]
			_, _ = l.Update(id, domain.TextPatch{Content: domain.Ptr(fmt.Sprint(step))})
		default:
			l.Reorder(ids[rng.Intn(len(ids))], ids[rng.Intn(len(ids))])
		}

		seen := map[string]bool{}
		for _, b := range l.Blocks() {
			require.False(t, seen[b.ID], "duplicate id %s", b.ID)
			seen[b.ID] = true
			require.Equal(t, kinds[b.ID], b.Kind)
			require.True(t, b.HasPayload())
		}
		require.Len(t, seen, len(kinds))
	}
}

func TestAttachLinkImage(t *testing.T) {
	l := newList(t, editor.WithMaxImageBytes(1024))
	link, _ := l.Append(domain.BlockKindLink)
	txt, _ := l.Append(domain.BlockKindText)

	err := l.AttachLinkImage(link.ID, domain.PendingAsset("/tmp/big.png", 2048))
	assert.ErrorIs(t, err, domain.ErrAssetTooLarge)

	err = l.AttachLinkImage(txt.ID, domain.PendingAsset("/tmp/a.png", 10))
	assert.ErrorIs(t, err, domain.ErrKindMismatch)

	err = l.AttachLinkImage("missing", domain.PendingAsset("/tmp/a.png", 10))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, l.AttachLinkImage(link.ID, domain.PendingAsset("/tmp/a.png", 10)))
	got, _ := l.Get(link.ID)
	require.NotNil(t, got.Link.Image)
	assert.True(t, got.Link.Image.Pending())
	assert.Equal(t, "blob:a.png", got.Link.Image.Src())
}

func TestObserve_ReportsChanges(t *testing.T) {
	l := listOf(t, "A", "B")
	var got []editor.Change
	l.Observe(func(c editor.Change) { got = append(got, c) })

	l.Reorder("B", "A")
	l.Remove("A")
	l.Remove("A")

	assert.Equal(t, []editor.Change{
		{Kind: editor.ChangeReorder, BlockID: "B"},
		{Kind: editor.ChangeRemove, BlockID: "A"},
	}, got)
}
