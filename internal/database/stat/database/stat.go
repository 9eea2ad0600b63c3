package database

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/threes-games/threes/internal/cache"
	"github.com/threes-games/threes/internal/database"
	"github.com/threes-games/threes/internal/database/stat/model"
	bolt "go.etcd.io/bbolt"
)

const prefix = "stat"

var pLen = len(prefix)

var ErrNotFound = fmt.Errorf("not found")

func New(db *database.DB, cache cache.Cache) *DB {
	return &DB{sDB: db, cache: cache}
}

type DB struct {
	sDB *database.DB

	cache cache.Cache
}

// one bucket per guild, one entry per player
func (db *DB) bytesBucket(guildID int64) []byte {
	b := make([]byte, pLen+8)
	copy(b, prefix)
	binary.BigEndian.PutUint64(b[pLen:], uint64(guildID))
	return b
}

func (db *DB) serialKey(guildID, userID int64) string {
	return fmt.Sprintf("%s%d:%d", prefix, guildID, userID)
}

func (db *DB) userKey(userID int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(userID))
	return b
}

// Record applies a terminal game outcome to both players' counters.
// Ties are never recorded; callers pass only decided games.
func (db *DB) Record(guildID, winnerID, loserID int64, moonShot bool) error {
	tx, err := db.sDB.DB.Begin(true)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer tx.Rollback() //nolint

	b, err := tx.CreateBucketIfNotExists(db.bytesBucket(guildID))
	if err != nil {
		return fmt.Errorf("can not create bucket %d: %w", guildID, err)
	}

	winner, err := db.fetchTx(b, guildID, winnerID)
	if err != nil {
		return fmt.Errorf("fetch winner: %w", err)
	}

	loser, err := db.fetchTx(b, guildID, loserID)
	if err != nil {
		return fmt.Errorf("fetch loser: %w", err)
	}

	winner.Wins++
	if moonShot {
		winner.MoonShots++
	}
	loser.Losses++

	now := time.Now()
	winner.UpdatedAt = now
	loser.UpdatedAt = now

	if err := db.putTx(b, winner); err != nil {
		return fmt.Errorf("put winner: %w", err)
	}

	if err := db.putTx(b, loser); err != nil {
		return fmt.Errorf("put loser: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	if db.cache != nil {
		db.cache.Delete(db.serialKey(guildID, winnerID))
		db.cache.Delete(db.serialKey(guildID, loserID))
	}

	return nil
}

// RecordWin credits a single player, used for games against the
// automated opponent where the other seat has no record.
func (db *DB) RecordWin(guildID, userID int64, moonShot bool) error {
	return db.recordOne(guildID, userID, func(stat *model.Stat) {
		stat.Wins++
		if moonShot {
			stat.MoonShots++
		}
	})
}

func (db *DB) RecordLoss(guildID, userID int64) error {
	return db.recordOne(guildID, userID, func(stat *model.Stat) {
		stat.Losses++
	})
}

func (db *DB) recordOne(guildID, userID int64, apply func(*model.Stat)) error {
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(db.bytesBucket(guildID))
		if err != nil {
			return fmt.Errorf("can not create bucket %d: %w", guildID, err)
		}

		stat, err := db.fetchTx(b, guildID, userID)
		if err != nil {
			return fmt.Errorf("fetch: %w", err)
		}

		apply(&stat)
		stat.UpdatedAt = time.Now()

		return db.putTx(b, stat)
	}); err != nil {
		return err
	}

	if db.cache != nil {
		db.cache.Delete(db.serialKey(guildID, userID))
	}

	return nil
}

func (db *DB) fetchTx(b *bolt.Bucket, guildID, userID int64) (model.Stat, error) {
	v := b.Get(db.userKey(userID))
	if v == nil {
		return model.NewStat(guildID, userID), nil
	}

	var stat model.Stat
	if err := json.Unmarshal(v, &stat); err != nil {
		return stat, fmt.Errorf("json unmarshal: %w", err)
	}

	return stat, nil
}

func (db *DB) putTx(b *bolt.Bucket, stat model.Stat) error {
	bytes, err := json.Marshal(stat)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := b.Put(db.userKey(stat.UserID), bytes); err != nil {
		return fmt.Errorf("put to bucket: %w", err)
	}

	return nil
}

func (db *DB) Fetch(guildID, userID int64) (model.Stat, error) {
	var stat model.Stat
	sKey := db.serialKey(guildID, userID)
	if db.cache != nil {
		if v, ok := db.cache.Get(sKey); ok {
			return v.(model.Stat), nil
		}
	}

	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(db.bytesBucket(guildID))
		if b == nil {
			return ErrNotFound
		}

		v := b.Get(db.userKey(userID))
		if v == nil {
			return ErrNotFound
		}

		if err := json.Unmarshal(v, &stat); err != nil {
			return fmt.Errorf("json unmarshal: %w", err)
		}

		return nil
	}); err != nil {
		return stat, err
	}

	if db.cache != nil {
		db.cache.Add(sKey, stat)
	}

	return stat, nil
}

// Leaderboard returns all tracked players of a guild, best first:
// wins descending, then losses ascending.
func (db *DB) Leaderboard(guildID int64) ([]model.Stat, error) {
	var list []model.Stat

	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(db.bytesBucket(guildID))
		if b == nil {
			return nil
		}

		if err := b.ForEach(func(k, v []byte) error {
			var stat model.Stat
			if err := json.Unmarshal(v, &stat); err != nil {
				return fmt.Errorf("json unmarshal: %w", err)
			}
			list = append(list, stat)
			return nil
		}); err != nil {
			return fmt.Errorf("bucket for each: %w", err)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction: %w", err)
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Wins != list[j].Wins {
			return list[i].Wins > list[j].Wins
		}
		return list[i].Losses < list[j].Losses
	})

	return list, nil
}

func (db *DB) Reset(guildID, userID int64) error {
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(db.bytesBucket(guildID))
		if b == nil {
			return ErrNotFound
		}

		if b.Get(db.userKey(userID)) == nil {
			return ErrNotFound
		}

		return b.Delete(db.userKey(userID))
	}); err != nil {
		return err
	}

	if db.cache != nil {
		db.cache.Delete(db.serialKey(guildID, userID))
	}

	return nil
}

func (db *DB) ResetAll(guildID int64) error {
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(db.bytesBucket(guildID)) == nil {
			return nil
		}

		return tx.DeleteBucket(db.bytesBucket(guildID))
	}); err != nil {
		return fmt.Errorf("delete bucket: %w", err)
	}

	if db.cache != nil {
		for _, key := range db.cache.Keys() {
			db.cache.Delete(key)
		}
	}

	return nil
}
