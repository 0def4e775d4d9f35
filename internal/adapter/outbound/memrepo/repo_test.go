package memrepo_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/bqmcp/internal/adapter/outbound/memrepo"
	"github.com/i2y/bqmcp/internal/domain"
	"github.com/i2y/bqmcp/internal/usecase"
)

func newTestRepo(t *testing.T) *memrepo.InMemoryToolRepository {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return memrepo.NewInMemoryToolRepository(logger)
}

// textHandler returns a handler whose result text identifies it.
func textHandler(text string) usecase.ToolHandler {
	return func(ctx context.Context, args map[string]any) *domain.ToolResult {
		return domain.Success(text)
	}
}

func TestInMemoryToolRepository_SaveAndList(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	tool1 := domain.Tool{Name: "tool1", Description: "T1"}
	tool2 := domain.Tool{Name: "tool2", Description: "T2"}

	tests := []struct {
		name        string
		inTools     []domain.Tool
		inHandlers  []usecase.ToolHandler
		wantSaveErr bool
		wantList    []domain.Tool // Expected state after save, ordered by name
	}{
		{
			name:       "Save single tool",
			inTools:    []domain.Tool{tool1},
			inHandlers: []usecase.ToolHandler{textHandler("h1")},
			wantList:   []domain.Tool{tool1},
		},
		{
			name:       "Save multiple tools (listed by name)",
			inTools:    []domain.Tool{tool2, tool1},
			inHandlers: []usecase.ToolHandler{textHandler("h2"), textHandler("h1")},
			wantList:   []domain.Tool{tool1, tool2},
		},
		{
			name:       "Save empty list",
			inTools:    []domain.Tool{},
			inHandlers: []usecase.ToolHandler{},
			wantList:   []domain.Tool{},
		},
		{
			name:       "Save with empty tool name (skipped)",
			inTools:    []domain.Tool{{Name: "", Description: "Empty"}, tool1},
			inHandlers: []usecase.ToolHandler{textHandler("empty"), textHandler("h1")},
			wantList:   []domain.Tool{tool1},
		},
		{
			name:       "Save with nil handler (skipped)",
			inTools:    []domain.Tool{tool1, tool2},
			inHandlers: []usecase.ToolHandler{textHandler("h1"), nil},
			wantList:   []domain.Tool{tool1},
		},
		{
			name:        "Error on mismatch length",
			inTools:     []domain.Tool{tool1},
			inHandlers:  []usecase.ToolHandler{textHandler("h1"), textHandler("h2")},
			wantSaveErr: true,
			wantList:    []domain.Tool{}, // Expect state to be unchanged on error
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepo(t)

			err := repo.Save(ctx, tt.inTools, tt.inHandlers)

			if tt.wantSaveErr {
				assert.Error(err)
			} else {
				assert.NoError(err)
			}

			listedTools, listErr := repo.List(ctx)
			require.NoError(listErr)
			assert.Equal(tt.wantList, listedTools)
		})
	}
}

func TestInMemoryToolRepository_FindByName(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	repo := newTestRepo(t)

	tool1 := domain.Tool{Name: "tool1", Description: "T1"}
	tool2 := domain.Tool{Name: "tool2", Description: "T2"}

	err := repo.Save(ctx, []domain.Tool{tool1, tool2}, []usecase.ToolHandler{textHandler("h1"), textHandler("h2")})
	require.NoError(err)

	tests := []struct {
		name        string
		inName      string
		wantTool    *domain.Tool
		wantText    string
		wantFindErr bool
	}{
		{name: "Find existing tool1", inName: "tool1", wantTool: &tool1, wantText: `"h1"`},
		{name: "Find existing tool2", inName: "tool2", wantTool: &tool2, wantText: `"h2"`},
		{name: "Find non-existent tool", inName: "tool3", wantFindErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actualTool, err := repo.FindToolByName(ctx, tt.inName)
			actualHandler, handlerErr := repo.FindHandlerByName(ctx, tt.inName)
			if tt.wantFindErr {
				assert.ErrorIs(err, usecase.ErrToolNotFound)
				assert.Nil(actualTool)
				assert.ErrorIs(handlerErr, usecase.ErrToolNotFound)
				assert.Nil(actualHandler)
				return
			}

			assert.NoError(err)
			assert.Equal(tt.wantTool, actualTool)
			require.NoError(handlerErr)
			assert.Equal(tt.wantText, actualHandler(ctx, nil).Text())
		})
	}
}

func TestInMemoryToolRepository_SaveOverwrite(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	repo := newTestRepo(t)

	toolV1 := domain.Tool{Name: "overwrite", Description: "V1"}
	toolV2 := domain.Tool{Name: "overwrite", Description: "V2"}

	require.NoError(repo.Save(ctx, []domain.Tool{toolV1}, []usecase.ToolHandler{textHandler("v1")}))
	require.NoError(repo.Save(ctx, []domain.Tool{toolV2}, []usecase.ToolHandler{textHandler("v2")}))

	foundTool, err := repo.FindToolByName(ctx, "overwrite")
	require.NoError(err)
	assert.Equal(&toolV2, foundTool)

	handler, err := repo.FindHandlerByName(ctx, "overwrite")
	require.NoError(err)
	assert.Equal(`"v2"`, handler(ctx, nil).Text())

	list, err := repo.List(ctx)
	require.NoError(err)
	assert.Len(list, 1)
	assert.Equal(toolV2, list[0])
}
