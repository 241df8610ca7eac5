package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailrelay/backend/internal/domain"
	"mailrelay/backend/internal/storage"
)

func TestUserMapping(t *testing.T) {
	store := NewStore()

	_, err := store.GetChatID(1)
	assert.ErrorIs(t, err, storage.ErrOwnerNotFound)

	require.NoError(t, store.UpsertUser(1, 100))
	chatID, err := store.GetChatID(1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), chatID)

	// 重复注册覆盖旧值
	require.NoError(t, store.UpsertUser(1, 200))
	chatID, err = store.GetChatID(1)
	require.NoError(t, err)
	assert.Equal(t, int64(200), chatID)
}

func TestNamePool(t *testing.T) {
	store := NewStore()

	_, err := store.PickUnusedName()
	assert.ErrorIs(t, err, storage.ErrPoolEmpty)

	inserted, err := store.SeedNames([]string{"fox", "cat", "fox"})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	name, err := store.PickUnusedName()
	require.NoError(t, err)
	assert.Contains(t, []string{"fox", "cat"}, name)

	count, err := store.CountUnusedNames()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestClaimAlias(t *testing.T) {
	newAlias := func(address string, owner int64) *domain.Alias {
		return &domain.Alias{
			Address:   address,
			OwnerID:   owner,
			BaseName:  "fox",
			IsActive:  true,
			CreatedAt: time.Now(),
		}
	}

	t.Run("占用翻转池条目", func(t *testing.T) {
		store := NewStore()
		_, err := store.SeedNames([]string{"fox"})
		require.NoError(t, err)

		require.NoError(t, store.ClaimAlias(newAlias("fox1234@inbox.dev", 1)))

		count, err := store.CountUnusedNames()
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		ownerID, err := store.ResolveOwner("fox1234@inbox.dev")
		require.NoError(t, err)
		assert.Equal(t, int64(1), ownerID)
	})

	t.Run("已占用的名字返回冲突", func(t *testing.T) {
		store := NewStore()
		_, err := store.SeedNames([]string{"fox"})
		require.NoError(t, err)

		require.NoError(t, store.ClaimAlias(newAlias("fox1234@inbox.dev", 1)))
		err = store.ClaimAlias(newAlias("fox5678@inbox.dev", 2))
		assert.ErrorIs(t, err, storage.ErrClaimConflict)
	})

	t.Run("地址重复返回冲突", func(t *testing.T) {
		store := NewStore()
		_, err := store.SeedNames([]string{"fox", "cat"})
		require.NoError(t, err)

		require.NoError(t, store.ClaimAlias(newAlias("fox1234@inbox.dev", 1)))
		err = store.ClaimAlias(newAlias("fox1234@inbox.dev", 2))
		assert.ErrorIs(t, err, storage.ErrClaimConflict)
	})

	t.Run("池中没有的名字返回冲突", func(t *testing.T) {
		store := NewStore()
		err := store.ClaimAlias(newAlias("fox1234@inbox.dev", 1))
		assert.ErrorIs(t, err, storage.ErrClaimConflict)
	})

	t.Run("并发占用同一个名字只有一个成功", func(t *testing.T) {
		store := NewStore()
		_, err := store.SeedNames([]string{"fox"})
		require.NoError(t, err)

		const workers = 8
		var wg sync.WaitGroup
		errs := make([]error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = store.ClaimAlias(newAlias("fox1234@inbox.dev", int64(i+1)))
			}(i)
		}
		wg.Wait()

		success := 0
		for _, err := range errs {
			if err == nil {
				success++
			} else {
				assert.ErrorIs(t, err, storage.ErrClaimConflict)
			}
		}
		assert.Equal(t, 1, success)
	})
}

func TestDeactivateAndList(t *testing.T) {
	store := NewStore()
	_, err := store.SeedNames([]string{"fox", "cat"})
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, store.ClaimAlias(&domain.Alias{
		Address: "fox1234@inbox.dev", OwnerID: 1, BaseName: "fox", IsActive: true, CreatedAt: now.Add(-time.Hour),
	}))
	require.NoError(t, store.ClaimAlias(&domain.Alias{
		Address: "cat5678@inbox.dev", OwnerID: 1, BaseName: "cat", IsActive: true, CreatedAt: now,
	}))

	t.Run("列表按创建时间倒序", func(t *testing.T) {
		aliases, err := store.ListAliasesByOwner(1, 10)
		require.NoError(t, err)
		require.Len(t, aliases, 2)
		assert.Equal(t, "cat5678@inbox.dev", aliases[0].Address)
		assert.Equal(t, "fox1234@inbox.dev", aliases[1].Address)
	})

	t.Run("停用后解析失败但仍在列表中", func(t *testing.T) {
		hit, err := store.DeactivateAlias("fox1234@inbox.dev", 1)
		require.NoError(t, err)
		assert.True(t, hit)

		_, err = store.ResolveOwner("fox1234@inbox.dev")
		assert.ErrorIs(t, err, storage.ErrAliasNotFound)

		aliases, err := store.ListAliasesByOwner(1, 10)
		require.NoError(t, err)
		require.Len(t, aliases, 2)
		assert.False(t, aliases[1].IsActive)
	})

	t.Run("所有者不匹配不命中", func(t *testing.T) {
		hit, err := store.DeactivateAlias("cat5678@inbox.dev", 9)
		require.NoError(t, err)
		assert.False(t, hit)
	})
}
