package likes

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"forum/common"
)

// Target names a likeable table, its join table, and the join table's
// foreign key column. Values are fixed identifiers, never user input.
type Target struct {
	Name         string
	CounterTable string
	LikeTable    string
	ForeignKey   string
}

var (
	PostTarget = Target{
		Name:         "Post",
		CounterTable: "posts",
		LikeTable:    "post_likes",
		ForeignKey:   "post_id",
	}
	CommentTarget = Target{
		Name:         "Comment",
		CounterTable: "comments",
		LikeTable:    "comment_likes",
		ForeignKey:   "comment_id",
	}
)

type Result struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}

// Toggle flips userID's like on the target row. The join row and the
// mirrored likes_count change in the same transaction.
func Toggle(db *gorm.DB, target Target, targetID, userID uint) (Result, error) {
	var result Result

	err := db.Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Table(target.CounterTable).Where("id = ?", targetID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return common.NotFound(target.Name + " not found")
		}

		removed := tx.Exec(
			"DELETE FROM "+target.LikeTable+" WHERE "+target.ForeignKey+" = ? AND user_id = ?",
			targetID, userID,
		)
		if removed.Error != nil {
			return removed.Error
		}

		if removed.RowsAffected > 0 {
			if err := tx.Exec(
				"UPDATE "+target.CounterTable+" SET likes_count = CASE WHEN likes_count > 0 THEN likes_count - 1 ELSE 0 END WHERE id = ?",
				targetID,
			).Error; err != nil {
				return err
			}
			result.Liked = false
		} else {
			err := tx.Exec(
				"INSERT INTO "+target.LikeTable+" ("+target.ForeignKey+", user_id, created_at) VALUES (?, ?, ?)",
				targetID, userID, time.Now(),
			).Error
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return common.Conflict("Like was changed by another request, try again")
			}
			if err != nil {
				return err
			}
			if err := tx.Exec(
				"UPDATE "+target.CounterTable+" SET likes_count = likes_count + 1 WHERE id = ?",
				targetID,
			).Error; err != nil {
				return err
			}
			result.Liked = true
		}

		return tx.Table(target.CounterTable).Select("likes_count").Where("id = ?", targetID).Scan(&result.LikesCount).Error
	})

	return result, err
}

// Message is the human-readable outcome of a toggle.
func (r Result) Message(target Target) string {
	if r.Liked {
		return target.Name + " liked"
	}
	return target.Name + " unliked"
}
