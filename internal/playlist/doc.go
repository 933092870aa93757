// Package playlist provides navigation over an ordered playlist and a working copy builder for editing one.
package playlist
