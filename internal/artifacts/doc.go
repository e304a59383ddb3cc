// Package artifacts manages the files a request creates.
//
// Files live in three directories: uploads, work (intermediates between
// pipeline stages) and outputs. A [Set] tracks every file one request
// creates and removes them on [Set.Release]: uploads and intermediates on
// every path, outputs only when the request failed. Delivered outputs are
// removed by [Storage.RemoveOutput] after download or by [Storage.Purge]
// when the storage area is torn down. Nothing else in the module deletes
// files.
package artifacts
