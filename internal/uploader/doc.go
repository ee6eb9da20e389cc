// Package uploader is the state engine behind a file-upload widget.
//
// It tracks each selected file from the moment it is added, through its
// upload or delete operation, until it settles or is removed. The transport
// is not part of this package: hosts inject an [Uploader] and a [Deleter].
//
// # Architecture
//
// Two layers:
//
//   - Item state store: [Apply] is a pure transition function from a
//     [State] and an [Event] to the next State. Events form a closed set
//     ([Clear], [SetCapacity], [Add], [Started], [UploadCompleted], [Retry],
//     [Delete], [DeleteCompleted]).
//   - Operation coordinator: [Coordinator] serializes every event through
//     one dispatch point, claims each Idle item with Started, runs the
//     matching capability in a goroutine and dispatches its settlement.
//
// # Lifecycle
//
//	Add ──► Idle ──Started──► InFlight ──► Succeeded | Failed
//	                 ▲                          │
//	                 └──── Retry / Delete ◄─────┘
//
// A successful delete removes the item. Clear, a capacity shrink and
// [Coordinator.Close] remove items and cancel their operations.
//
// # Stale results
//
// Every Started increments the item's attempt counter and completions carry
// the attempt they settle. A completion for a removed item, or for an
// attempt that has since been cancelled by Delete, is ignored, so a late
// server response can never resurrect or overwrite an item.
//
// # Invariants
//
//   - Names are unique within the collection.
//   - len(Items) never exceeds Capacity; an Add batch that would overflow
//     is rejected as a whole.
//   - An item has at most one operation in flight.
//
// # Usage
//
//	c := uploader.New(uploader.Options{MaxFiles: 3}, myUploader, myDeleter)
//	defer c.Close(context.Background())
//
//	updates, stop := c.Subscribe()
//	defer stop()
//
//	c.AddFiles(uploader.NewBytesFile("a.png", "", data))
//	for views := range updates {
//	    render(views)
//	}
package uploader
