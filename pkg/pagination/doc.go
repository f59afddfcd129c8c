// Package pagination turns paginated JustCall endpoints into lazy Go iterators.
//
// JustCall endpoints end a collection in different ways. Some report a total,
// some just return an empty page, and the v2.1 calls and texts endpoints page
// by the identifier of the last item already seen. A Driver is configured once
// per endpoint with the matching Strategy and CursorMode and then produces an
// iter.Seq2 that fetches one page at a time as the consumer ranges over it.
//
// Example usage:
//
//	d, err := pagination.New(pagination.Config[Record]{
//		Name:      "users",
//		Strategy:  pagination.EmptyPage,
//		StartPage: 0,
//		Gate:      gate,
//	}, fetchUsers)
//	for user, err := range d.Iterate(ctx, pagination.MaxItems(200)) {
//		if err != nil {
//			return err
//		}
//		...
//	}
//
// The driver:
//   - admits every page fetch through the gate
//   - never reads ahead; breaking out of the loop stops all fetching
//   - spawns no goroutines
//   - yields a fetch error once and stops, without retrying
package pagination
