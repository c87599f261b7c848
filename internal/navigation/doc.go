// Package navigation implements the per-project jump list.
//
// A [History] holds a current [Item] plus backward and forward stacks. Push
// records a new place and empties the forward stack; GoBackward and
// GoForward move between recorded places. Consecutive jumps that a
// [Chainer] considers the same place are folded into one entry.
//
// Independent editors work on a [History.Branch] and fold their navigation
// back with [History.Merge]. Merging matches items by identity, so a branch
// shares *Item values with the history it came from.
//
// # Persistence
//
// Load and Save use a text format with one URI per line, most recent first.
// Positions are written as a "#L<line>_<column>" fragment. The legacy form
// "<line> <column> <uri>" is accepted on load.
package navigation
