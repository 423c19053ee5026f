// Package upload copies finished artifacts to a remote location.
//
// Two providers exist. DirectoryUploader mirrors files into a local or
// mounted directory, and DriveUploader keeps them in a Google Drive folder.
// Both replace an existing file of the same name rather than adding a
// second copy.
package upload
