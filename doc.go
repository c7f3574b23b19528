/*
Package compositefs combines multiple Storage backends into a single virtual
directory tree, in the way a Unix system mounts devices into one hierarchy.

# Overview

A CompositeStorage holds a mount tree. Every node of the tree is named by a
path segment and may carry a mounted Storage. A request for a virtual uri is
routed to the storage mounted at the longest prefix of that uri, and the
storage receives the remaining segments as its own relative uri.

	/            -> root storage (optional)
	/music       -> local music folder
	/music/usb   -> removable drive

A request for "/music/usb/a.flac" reaches the removable drive as "a.flac".
A request for "/music/b.flac" reaches the music folder as "b.flac".

# Key Features

  - Mounting and unmounting at any depth, at any time
  - Longest-prefix routing of every Storage operation
  - Merged directory listings of backend entries and mount points
  - Virtual directories for nodes that only route to deeper mounts
  - Mapping of virtual uris to native paths and back
  - An optional stat cache with negative entries
  - A read-only absfs.FileSystem view of the whole tree

# Basic Usage

	package main

	import (
	    "github.com/absfs/compositefs"
	)

	func main() {
	    music, err := compositefs.NewLocalStorage("/home/me/Music")
	    if err != nil {
	        panic(err)
	    }

	    cs := compositefs.New()
	    cs.Mount("/music", music)

	    info, err := cs.GetInfo("/music/album/01.flac", true)
	    ...

	    native, ok := cs.MapFS("/music/album/01.flac")
	    // native == "/home/me/Music/album/01.flac"

	    uri, ok := cs.MapToRelativeUTF8("/home/me/Music/album/01.flac")
	    // uri == "music/album/01.flac"
	}

# Uris

Virtual uris are slash separated. Leading, trailing and repeated slashes are
ignored, so "/a//b/" and "a/b" name the same node. The root is the empty uri.
Uris returned by the package carry no leading slash.

# Directory Merging

Listing a directory that is itself a mount point, or that lies inside a
mounted storage, yields the backend's entries followed by the names of the
mount points directly below it. A name present in both is reported once, with
the backend's information. Listing a node that only routes to deeper mounts
yields just the mount point names; each of them is reported as a directory.

If the backend of a node with child mounts cannot list the directory, the
error is dropped and the mount point names are still returned.

# Unmounting

Unmount removes the mount at exactly the given uri and prunes tree nodes that
no longer lead anywhere. Requests already routed to the removed storage
complete normally: each in-flight operation and every open DirectoryReader or
File holds a lease, and the storage is closed once the last lease is
released. Storages implementing io.Closer are closed at that point.

# Caching

	cs := compositefs.New(
	    compositefs.WithStatCache(true, 5*time.Second),
	)

The stat cache remembers the results of GetInfo with follow set, including
not-found results. Mount and Unmount invalidate every cached entry above and
below the changed uri. Changes made to a backend behind the composite's back
are picked up when the entry expires.

# Nesting

A CompositeStorage is itself a Storage and can be mounted inside another
CompositeStorage.

# Thread Safety

CompositeStorage is safe for concurrent use. A single mutex guards the mount
tree; it is held while routing and released before a backend is called, so a
slow storage does not stall requests to other mounts. Backends must be safe
for concurrent use themselves. DirectoryReader and File values are not safe
for concurrent use.

# Limitations

  - The composite is read-only; writes go to the backends directly
  - No persistence of the mount table
  - No recursive unmount
*/
package compositefs
