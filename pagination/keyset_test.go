package pagination

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memItem struct {
	ID   int
	Name string
}

// memSource pages over a static slice, sorted by (Name, ID).
type memSource struct {
	items []memItem
}

func newMemSource(items []memItem) *memSource {
	sorted := make([]memItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name != sorted[j].Name {
			return sorted[i].Name < sorted[j].Name
		}
		return sorted[i].ID < sorted[j].ID
	})
	return &memSource{items: sorted}
}

func (s *memSource) less(a Cursor, b Cursor) bool {
	if a.Primary != b.Primary {
		return a.Primary < b.Primary
	}
	return a.ID < b.ID
}

func (s *memSource) FetchAfter(_ context.Context, after *Cursor, limit int) ([]memItem, error) {
	var out []memItem
	for _, item := range s.items {
		if after != nil && !s.less(*after, s.Key(item)) {
			continue
		}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memSource) FetchBefore(_ context.Context, before Cursor, limit int) ([]memItem, error) {
	var out []memItem
	for i := len(s.items) - 1; i >= 0; i-- {
		if !s.less(s.Key(s.items[i]), before) {
			continue
		}
		out = append(out, s.items[i])
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memSource) Bounds(_ context.Context) (int, int, bool, error) {
	if len(s.items) == 0 {
		return 0, 0, false, nil
	}
	return s.items[0].ID, s.items[len(s.items)-1].ID, true, nil
}

func (s *memSource) Key(item memItem) Cursor {
	return Cursor{Primary: item.Name, ID: item.ID}
}

func makeItems(n int) []memItem {
	items := make([]memItem, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, memItem{ID: i, Name: fmt.Sprintf("name-%03d", i)})
	}
	return items
}

func TestCursor_EncodeDecodeRoundTrip(t *testing.T) {
	original := Cursor{Primary: "2025-06-01T18:30:00Z", ID: 42}

	decoded, err := DecodeCursor(original.Encode())
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestCursor_PrimaryMayContainSeparator(t *testing.T) {
	// Primary может содержать разделитель токена.
	original := Cursor{Primary: "a|b|c", ID: 7}

	decoded, err := DecodeCursor(original.Encode())
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	// "bm9zZXBhcmF0b3I" decodes without a separator, "eHw1" decodes to
	// "x|5" with a non-numeric id part.
	cases := []string{"", "not base64 !!!", "bm9zZXBhcmF0b3I", "eHw1"}
	for _, token := range cases {
		_, err := DecodeCursor(token)
		assert.ErrorIs(t, err, ErrInvalidCursor, "token %q", token)
	}
}

func TestPaginate_FirstPage(t *testing.T) {
	src := newMemSource(makeItems(25))

	page, err := Paginate[memItem](context.Background(), src, nil, DirectionNext, 10)
	require.NoError(t, err)

	require.Len(t, page.Items, 10)
	assert.Equal(t, 1, page.Items[0].ID)
	assert.Equal(t, 10, page.Items[9].ID)
	require.NotNil(t, page.Next)
	assert.Equal(t, 10, page.Next.ID)
	assert.Nil(t, page.Prev, "first page must not have a prev cursor")
}

func TestPaginate_MiddleAndLastPage(t *testing.T) {
	src := newMemSource(makeItems(25))

	first, err := Paginate[memItem](context.Background(), src, nil, DirectionNext, 10)
	require.NoError(t, err)

	second, err := Paginate[memItem](context.Background(), src, first.Next, DirectionNext, 10)
	require.NoError(t, err)
	require.Len(t, second.Items, 10)
	assert.Equal(t, 11, second.Items[0].ID)
	require.NotNil(t, second.Next)
	require.NotNil(t, second.Prev)

	third, err := Paginate[memItem](context.Background(), src, second.Next, DirectionNext, 10)
	require.NoError(t, err)
	require.Len(t, third.Items, 5)
	assert.Equal(t, 25, third.Items[4].ID)
	assert.Nil(t, third.Next, "last page must not have a next cursor")
	require.NotNil(t, third.Prev)
}

func TestPaginate_Backward(t *testing.T) {
	src := newMemSource(makeItems(25))

	first, err := Paginate[memItem](context.Background(), src, nil, DirectionNext, 10)
	require.NoError(t, err)
	second, err := Paginate[memItem](context.Background(), src, first.Next, DirectionNext, 10)
	require.NoError(t, err)

	// Назад со второй страницы — получаем первую, в восходящем порядке.
	back, err := Paginate[memItem](context.Background(), src, second.Prev, DirectionPrev, 10)
	require.NoError(t, err)
	require.Len(t, back.Items, 10)
	assert.Equal(t, first.Items, back.Items)
	assert.Nil(t, back.Prev)
	require.NotNil(t, back.Next)
}

func TestPaginate_ExactBoundary(t *testing.T) {
	// Коллекция делится на страницы без остатка: последняя полная страница
	// не должна обещать продолжение.
	src := newMemSource(makeItems(20))

	first, err := Paginate[memItem](context.Background(), src, nil, DirectionNext, 10)
	require.NoError(t, err)
	require.NotNil(t, first.Next)

	second, err := Paginate[memItem](context.Background(), src, first.Next, DirectionNext, 10)
	require.NoError(t, err)
	require.Len(t, second.Items, 10)
	assert.Nil(t, second.Next)
}

func TestPaginate_SinglePageCollection(t *testing.T) {
	src := newMemSource(makeItems(3))

	page, err := Paginate[memItem](context.Background(), src, nil, DirectionNext, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Nil(t, page.Next)
	assert.Nil(t, page.Prev)
}

func TestPaginate_Empty(t *testing.T) {
	src := newMemSource(nil)

	page, err := Paginate[memItem](context.Background(), src, nil, DirectionNext, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.Next)
	assert.Nil(t, page.Prev)
}

func TestPaginate_DuplicatePrimaryKeys(t *testing.T) {
	// Один и тот же primary у нескольких элементов: id должен разруливать
	// порядок, страницы не должны терять и дублировать элементы.
	items := []memItem{
		{ID: 1, Name: "same"}, {ID: 2, Name: "same"}, {ID: 3, Name: "same"},
		{ID: 4, Name: "same"}, {ID: 5, Name: "same"},
	}
	src := newMemSource(items)

	var got []memItem
	var cursor *Cursor
	for {
		page, err := Paginate[memItem](context.Background(), src, cursor, DirectionNext, 2)
		require.NoError(t, err)
		got = append(got, page.Items...)
		if page.Next == nil {
			break
		}
		cursor = page.Next
	}

	require.Len(t, got, 5)
	for i, item := range got {
		assert.Equal(t, i+1, item.ID)
	}
}

func TestPaginate_InvalidPageSize(t *testing.T) {
	src := newMemSource(makeItems(3))

	_, err := Paginate[memItem](context.Background(), src, nil, DirectionNext, 0)
	assert.ErrorIs(t, err, ErrInvalidPageSize)
}
