package describe

import (
	"fmt"

	"scenefacts.ai/internal/scene/grid"
)

// Fact wording is consumed by prompt builders that match on these substrings;
// keep the phrasing stable.

const DefaultRemovedMessage = "There are no observations: You were taken out of the game"

func appleOnTreeFact(pos grid.Point, tree int) string {
	return fmt.Sprintf("Observed an apple at position %s. This apple belongs to tree %d", pos, tree)
}

func grassOnTreeFact(pos grid.Point, tree int) string {
	return fmt.Sprintf("Observed grass to grow apples at position %s. This grass belongs to tree %d", pos, tree)
}

func treeSummaryFact(tree int, centroid grid.Point, apples, grass int) string {
	return fmt.Sprintf("Observed tree %d at position %s. This tree has %d apples remaining and %d grass for apples growing on the observed map. The tree might have more apples and grass on the global map",
		tree, centroid, apples, grass)
}

func appleFact(pos grid.Point) string { return fmt.Sprintf("Observed an apple at position %s", pos) }

func dirtFact(pos grid.Point) string {
	return fmt.Sprintf("Observed dirt on the river at position %s", pos)
}

func riverBankFact(pos grid.Point) string {
	return fmt.Sprintf("Observed river bank at position %s", pos)
}

func fieldEdgeFact(pos grid.Point) string {
	return fmt.Sprintf("Observed apple field edge at position %s", pos)
}

func agentFact(id int, pos grid.Point) string {
	return fmt.Sprintf("Observed agent %d at position %s", id, pos)
}

// RemovedFact is the only fact emitted for an agent that is out of the game.
func RemovedFact(message string, lastKnown grid.Point) string {
	if message == "" {
		message = DefaultRemovedMessage
	}
	return fmt.Sprintf("%s at position %s", message, lastKnown)
}
