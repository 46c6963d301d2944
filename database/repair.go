package database

import (
	"log"

	"gorm.io/gorm"
)

var repairStatements = []string{
	`UPDATE posts SET likes_count = (SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id)`,
	`UPDATE posts SET comments_count = (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id)`,
	`UPDATE comments SET likes_count = (SELECT COUNT(*) FROM comment_likes WHERE comment_likes.comment_id = comments.id)`,
}

// RepairCounters recomputes the denormalized like and comment counters from
// the rows they mirror.
func RepairCounters(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, stmt := range repairStatements {
			if err := tx.Exec(stmt).Error; err != nil {
				log.Printf("Error repairing counters: %v", err)
				return err
			}
		}
		log.Println("Counters repaired")
		return nil
	})
}
