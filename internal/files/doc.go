// Package files holds the snapshot store and the file system helpers it
// is built on.
//
// Discovery recognises snapshot files named <prefix>_<YYYY-MM-DD>.<ext> and
// recovers their dates. Store writes, lists and reads those files through
// an exporter.CSVWriter fixed to one text encoding. Manager provides the
// small set of directory and copy operations the pipeline and the local
// upload mirror need.
//
// Example usage:
//
//	store, err := files.NewStore("マイジャグラーV", files.StoreOptions{
//	    FilePrefix: "slot_machine_data",
//	    Extension:  "csv",
//	    Encoding:   "shift_jis",
//	})
//	path, err := store.Write(snapshot)
//	entries, err := store.ListAll()
package files
