// Package reconcile implements the reconciliation engine (spec §4.6): a
// pure function from (client snapshot, server latest-per-path events) to
// an ordered list of Upload/Download/Delete instructions. It performs no
// I/O and holds no locks.
package reconcile

import (
	"github.com/syncbridge/syncd/internal/model"
)

// Reconcile computes the instruction list for one client poll.
//
// target is the server's latest event per path in the watch group
// (History.GetLatestEvents). client is the descriptor list the client
// just reported. The algorithm and its tie-breaks are exact per spec
// §4.6: instructions derived from target come first, in target's
// iteration order, followed by client-only paths in client's iteration
// order.
func Reconcile(target []model.FileEvent, client []model.FileDescriptor) []model.Instruction {
	clientByPath := make(map[string]model.FileDescriptor, len(client))
	for _, c := range client {
		clientByPath[c.RelativePath.String()] = c
	}

	seen := make(map[string]bool, len(target))

	instructions := make([]model.Instruction, 0, len(target)+len(client))

	for _, e := range target {
		key := e.RelativePath.String()
		seen[key] = true

		c, hasClient := clientByPath[key]

		if !hasClient {
			// Client is missing the path entirely.
			if e.EventType == model.EventChange {
				instructions = append(instructions, model.Instruction{
					Kind: model.InstructionDownload,
					Path: e.RelativePath,
				})
			}
			// Delete + missing-on-client: correctly in sync, emit nothing.
			continue
		}

		// Client has the path.
		if e.EventType == model.EventChange && c.SizeInBytes == e.SizeInBytes {
			// Byte-size-identical: in sync even if mtimes differ.
			continue
		}

		if c.LastUpdatedMicro.Before(e.UTCMillis) {
			// Server has a strictly newer event than the client's copy.
			switch e.EventType {
			case model.EventChange:
				instructions = append(instructions, model.Instruction{
					Kind: model.InstructionDownload,
					Path: e.RelativePath,
				})
			case model.EventDelete:
				instructions = append(instructions, model.Instruction{
					Kind: model.InstructionDelete,
					Path: e.RelativePath,
				})
			}

			continue
		}

		// Client's last-updated is at or after the server event's time but
		// sizes differ (or the server has no newer event): the client
		// version is ahead and must be pushed.
		instructions = append(instructions, model.Instruction{
			Kind: model.InstructionUpload,
			Path: e.RelativePath,
		})
	}

	for _, c := range client {
		if seen[c.RelativePath.String()] {
			continue
		}

		instructions = append(instructions, model.Instruction{
			Kind: model.InstructionUpload,
			Path: c.RelativePath,
		})
	}

	return instructions
}
