/*
Package mvcc layers multiversion page content on top of a page.Cache.

A single stream of writers mutates the live payload of each page in place. The first write to a
page under a new version copies the live payload into an immutable snapshot and links it into
the page's version chain, newest first. Readers pick the content visible to their horizon: the
live payload if the head version is visible, otherwise the newest visible snapshot, otherwise
all zeros.

Readers never block and never copy. A reader bound to the live payload samples the frame's
modification sequence; if the sequence moved, or a write burst was in progress, ShouldRetry
returns true and the reader re-resolves and repeats its reads.

	vc := mvcc.NewVersionContext()
	vc.SetWriteAndReadVersion(10)
	cr, err := mc.OpenCursor(0, page.Write, vc)
	...
	ok, err := cr.Next()
	cr.PutInt(42)
	cr.Close()

Each page has a 24 byte reserved header, little endian:

	0   head version
	8   chain reference
	16  flags; bit 0 is set once the page has been written
*/
package mvcc
