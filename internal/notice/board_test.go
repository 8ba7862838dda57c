package notice_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/machool/internal/notice"
	"github.com/tournevent/machool/pkg/shipper/machool"
)

func TestBoard_AddOnce(t *testing.T) {
	board := notice.NewBoard()

	assert.True(t, board.Add("k", "first"))
	assert.False(t, board.Add("k", "second"))

	list := board.List()
	require.Len(t, list, 1)
	assert.Equal(t, "first", list[0].Message)
	assert.Equal(t, "error", list[0].Level)
	assert.False(t, list[0].AddedAt.IsZero())
}

func TestBoard_Reset(t *testing.T) {
	board := notice.NewBoard()
	board.Add("k", "first")

	board.Reset()
	assert.Equal(t, 0, board.Len())

	assert.True(t, board.Add("k", "again"))
	assert.Equal(t, 1, board.Len())
}

func TestBoard_HTML(t *testing.T) {
	board := notice.NewBoard()
	board.Add(machool.InvalidCredentialsNoticeKey, machool.InvalidCredentialsNotice)

	assert.Equal(t,
		`<div class="error"><p>Machool API key and Store domain is invalid. Please check your settings.</p></div>`,
		board.HTML(),
	)
}

func TestBoard_HTMLEscapes(t *testing.T) {
	board := notice.NewBoard()
	board.Add("x", "<script>")

	assert.Contains(t, board.HTML(), "&lt;script&gt;")
}

func TestBoard_Concurrent(t *testing.T) {
	board := notice.NewBoard()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			board.Add("same", "msg")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, board.Len())
}

func TestBoard_ImplementsNoticeBoard(t *testing.T) {
	var _ machool.NoticeBoard = notice.NewBoard()
}
