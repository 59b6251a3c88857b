// Package seed provisions development fixtures at startup.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	clientauthdomain "github.com/JovSele/patentapi/internal/clientauth/domain"
	ratelimitdomain "github.com/JovSele/patentapi/internal/ratelimit/domain"
)

// Development keys, one per tier. The raw values are well known and must
// never reach a production database.
var devKeys = []struct {
	Raw  string
	Name string
	Tier ratelimitdomain.Tier
}{
	{Raw: "dev-free-key", Name: "Dev Free", Tier: ratelimitdomain.TierFree},
	{Raw: "dev-starter-key", Name: "Dev Starter", Tier: ratelimitdomain.TierStarter},
	{Raw: "dev-pro-key", Name: "Dev Pro", Tier: ratelimitdomain.TierPro},
	{Raw: "dev-enterprise-key", Name: "Dev Enterprise", Tier: ratelimitdomain.TierEnterprise},
}

// EnsureDevKeys inserts the development API keys where absent. Existing
// rows are left untouched so local revocation tests survive restarts.
func EnsureDevKeys(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, dev := range devKeys {
			hash := clientauthdomain.HashKey(dev.Raw)

			var existing clientauthdomain.APIKey
			err := tx.WithContext(ctx).Where("key_hash = ?", hash).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			key := clientauthdomain.APIKey{
				ID:        node.Generate(),
				KeyHash:   hash,
				Name:      dev.Name,
				Tier:      string(dev.Tier),
				IsActive:  true,
				CreatedAt: time.Now().UTC(),
			}
			if err := tx.WithContext(ctx).Create(&key).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
