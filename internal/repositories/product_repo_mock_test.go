package repositories_test

import (
	"testing"

	"bazaar/internal/models"
	"bazaar/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProductRepository_ReadCopiesAreIsolated(t *testing.T) {
	repo := repositories.NewMockProductRepository()
	require.NoError(t, repo.Create(&models.Product{
		ID:             "mug-1",
		Name:           "Enamel Mug",
		TrackInventory: true,
		OptionAxes:     []models.OptionType{models.OptionColor},
		Variants: []models.Variant{
			{
				Options:       []models.VariantOption{{Type: models.OptionColor, Name: "Blue", Value: "blue"}},
				StockQuantity: 5,
				Active:        true,
			},
		},
	}))
	combination := models.Combination{{Type: models.OptionColor, Value: "blue"}}

	before, err := repo.GetByID("mug-1")
	require.NoError(t, err)

	require.NoError(t, repo.AdjustStock("mug-1", combination, -2, false))

	// The copy handed out earlier keeps the stock it was read with.
	assert.Equal(t, 5, before.Variants[0].StockQuantity)

	after, err := repo.GetByID("mug-1")
	require.NoError(t, err)
	assert.Equal(t, 3, after.Variants[0].StockQuantity)

	// Mutating a returned copy does not leak into the store either.
	after.Variants[0].StockQuantity = 99
	fresh, err := repo.GetByID("mug-1")
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.Variants[0].StockQuantity)
}
