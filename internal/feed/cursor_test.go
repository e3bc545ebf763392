package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCursor(t *testing.T) {
	tests := []struct {
		name    string
		maxs    string
		hasMaxs bool
		page    string
		after   string
		want    Cursor
		wantErr bool
	}{
		{name: "no params defaults to first page", want: PageCursor(1)},
		{name: "explicit page", page: "3", want: PageCursor(3)},
		{name: "page ignored when maxs present", maxs: "1500000000.5", hasMaxs: true, page: "9", want: At(1500000000.5)},
		{name: "zero means now", maxs: "0", hasMaxs: true, want: FromNow()},
		{name: "fraction below one means now", maxs: "0.75", hasMaxs: true, want: FromNow()},
		{name: "whitespace tolerated", maxs: " 42 ", hasMaxs: true, want: At(42)},
		{name: "after refines the bound", maxs: "5", hasMaxs: true, after: " v9 ", want: AtAfter(5, "v9")},
		{name: "after ignored from now", maxs: "0", hasMaxs: true, after: "v9", want: FromNow()},
		{name: "after ignored in page mode", page: "2", after: "v9", want: PageCursor(2)},
		{name: "empty maxs", maxs: "", hasMaxs: true, wantErr: true},
		{name: "garbage maxs", maxs: "yesterday", hasMaxs: true, wantErr: true},
		{name: "infinite maxs", maxs: "Inf", hasMaxs: true, wantErr: true},
		{name: "negative maxs", maxs: "-12", hasMaxs: true, wantErr: true},
		{name: "zero page", page: "0", wantErr: true},
		{name: "garbage page", page: "two", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCursor(tt.maxs, tt.hasMaxs, tt.page, tt.after)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePageSize(t *testing.T) {
	n, err := ParsePageSize("", 10, 100)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = ParsePageSize("25", 10, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	n, err = ParsePageSize("500", 10, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, n)

	n, err = ParsePageSize("500", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 500, n)

	_, err = ParsePageSize("0", 10, 100)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = ParsePageSize("ten", 10, 100)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCursorHelpers(t *testing.T) {
	assert.Equal(t, 0, PageCursor(1).Offset(10))
	assert.Equal(t, 20, PageCursor(3).Offset(10))
	assert.True(t, FromNow().IsFromNow())
	assert.False(t, At(0).IsFromNow())
	assert.Equal(t, ModeTimestamp, At(5).Mode())
	assert.Equal(t, "page(2)", PageCursor(2).String())
	assert.Equal(t, "now", FromNow().String())
	assert.Equal(t, "at(12.5)", At(12.5).String())
	assert.Equal(t, "at(5, v1)", AtAfter(5, "v1").String())
	assert.Equal(t, At(5), AtAfter(5, ""))
	assert.Equal(t, "v1", AtAfter(5, "v1").After())
	assert.Equal(t, At(99), FromNow().resolve(func() float64 { return 99 }))
	assert.Equal(t, At(7), At(7).resolve(func() float64 { return 99 }))
}
