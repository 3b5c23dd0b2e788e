package internal_test

import (
	"testing"

	"github.com/koopa0/system-design/14-multiplayer-tetris/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestOccupiedCells_AllShapesAllRotations 驗證形狀表的基本性質：
// 每種方塊每個旋轉方向恆為四格、格子互不重複、且落在局部網格內
func TestOccupiedCells_AllShapesAllRotations(t *testing.T) {
	pivot := internal.Pivot{X: 10, Y: 10}

	for shape := internal.ShapeID(0); shape < internal.ShapeCount; shape++ {
		for rotation := 0; rotation < 4; rotation++ {
			cells := internal.OccupiedCells(shape, rotation, pivot)

			require.Len(t, cells, 4,
				"shape %d rotation %d 應占用四格", shape, rotation)

			seen := make(map[internal.Pivot]bool)
			size := shape.GridSize()
			for _, cell := range cells {
				assert.False(t, seen[cell],
					"shape %d rotation %d 格子重複: %v", shape, rotation, cell)
				seen[cell] = true

				// 錨點在局部 (1,1)，偏移量範圍 [-1, size-2]
				assert.GreaterOrEqual(t, cell.X, pivot.X-1)
				assert.LessOrEqual(t, cell.X, pivot.X+size-2)
				assert.GreaterOrEqual(t, cell.Y, pivot.Y-1)
				assert.LessOrEqual(t, cell.Y, pivot.Y+size-2)
			}
		}
	}
}

// TestOccupiedCells_KnownFootprints 驗證幾個形狀的精確展開
func TestOccupiedCells_KnownFootprints(t *testing.T) {
	pivot := internal.Pivot{X: 5, Y: 5}

	tests := []struct {
		name     string
		shape    internal.ShapeID
		rotation int
		expected []internal.Pivot
	}{
		{
			name:     "I piece horizontal",
			shape:    internal.ShapeI,
			rotation: 0,
			expected: []internal.Pivot{
				{X: 4, Y: 5}, {X: 5, Y: 5}, {X: 6, Y: 5}, {X: 7, Y: 5},
			},
		},
		{
			name:     "I piece vertical",
			shape:    internal.ShapeI,
			rotation: 1,
			expected: []internal.Pivot{
				{X: 6, Y: 4}, {X: 6, Y: 5}, {X: 6, Y: 6}, {X: 6, Y: 7},
			},
		},
		{
			name:     "O piece is rotation invariant",
			shape:    internal.ShapeO,
			rotation: 0,
			expected: []internal.Pivot{
				{X: 4, Y: 4}, {X: 5, Y: 4}, {X: 4, Y: 5}, {X: 5, Y: 5},
			},
		},
		{
			name:     "T piece pointing up",
			shape:    internal.ShapeT,
			rotation: 0,
			expected: []internal.Pivot{
				{X: 5, Y: 4}, {X: 4, Y: 5}, {X: 5, Y: 5}, {X: 6, Y: 5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := internal.OccupiedCells(tt.shape, tt.rotation, pivot)
			assert.ElementsMatch(t, tt.expected, cells)
		})
	}
}

// TestOccupiedCells_RotationModulus 旋轉數縮減到 [0,4)
func TestOccupiedCells_RotationModulus(t *testing.T) {
	pivot := internal.Pivot{X: 5, Y: 5}

	for shape := internal.ShapeID(0); shape < internal.ShapeCount; shape++ {
		base := internal.OccupiedCells(shape, 1, pivot)

		assert.ElementsMatch(t, base, internal.OccupiedCells(shape, 5, pivot),
			"rotation 5 應等同 rotation 1")
		assert.ElementsMatch(t, base, internal.OccupiedCells(shape, -3, pivot),
			"rotation -3 應等同 rotation 1")
	}
}

// TestOccupiedCells_OPieceAllRotationsIdentical O 方塊四個方向展開相同
func TestOccupiedCells_OPieceAllRotationsIdentical(t *testing.T) {
	pivot := internal.Pivot{X: 3, Y: 7}
	base := internal.OccupiedCells(internal.ShapeO, 0, pivot)

	for rotation := 1; rotation < 4; rotation++ {
		assert.ElementsMatch(t, base,
			internal.OccupiedCells(internal.ShapeO, rotation, pivot))
	}
}

// TestShapeID_GridSize I 方塊用 4×4 網格，其餘 3×3
func TestShapeID_GridSize(t *testing.T) {
	assert.Equal(t, 4, internal.ShapeI.GridSize())

	for shape := internal.ShapeO; shape < internal.ShapeCount; shape++ {
		assert.Equal(t, 3, shape.GridSize(), "shape %d", shape)
	}
}

// TestShapeID_Valid 形狀編號合法範圍
func TestShapeID_Valid(t *testing.T) {
	for shape := internal.ShapeID(0); shape < internal.ShapeCount; shape++ {
		assert.True(t, shape.Valid())
	}
	assert.False(t, internal.ShapeID(7).Valid())
	assert.False(t, internal.ShapeID(255).Valid())
}
