package faqstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/faq-webhook/internal/domain/faq"
)

func TestMemoryStoreSaveAndGetAnswer(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	record := faq.AnswerRecord{Question: "ペット同伴はできますか", Answer: "小型犬のみ可能です", CreatedAt: time.Now()}
	require.NoError(t, store.SaveAnswer(ctx, "ぺっとどうはん", record, time.Hour))

	got, ok, err := store.GetAnswer(ctx, "ぺっとどうはん")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, record.Answer, got.Answer)

	_, ok, err = store.GetAnswer(ctx, "unknown")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreAnswerExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SaveAnswer(ctx, "key", faq.AnswerRecord{Answer: "a"}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := store.GetAnswer(ctx, "key")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreZeroTTLNeverExpires(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.SaveAnswer(ctx, "key", faq.AnswerRecord{Answer: "a"}, 0))

	_, ok, err := store.GetAnswer(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemoryStoreTopQueries(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.IncrementQuery(ctx, "えいぎょうじかん", "営業時間は？"))
	}
	require.NoError(t, store.IncrementQuery(ctx, "ていきゅうび", "定休日は？"))
	require.NoError(t, store.IncrementQuery(ctx, "ていきゅうび", "定休日はいつ？"))
	require.NoError(t, store.IncrementQuery(ctx, "ちゅうしゃじょう", "駐車場はありますか"))

	top, err := store.TopQueries(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "営業時間は？", top[0].Query, "first display string wins")
	require.Equal(t, int64(3), top[0].Count)
	require.Equal(t, "定休日は？", top[1].Query)
	require.Equal(t, int64(2), top[1].Count)
}

func TestMemoryStoreIgnoresEmptyKeys(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.IncrementQuery(ctx, "", "whatever"))
	require.NoError(t, store.SaveAnswer(ctx, "", faq.AnswerRecord{Answer: "a"}, time.Hour))

	top, err := store.TopQueries(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, top)
}
