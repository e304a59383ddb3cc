// Package params validates the loosely typed form fields of a conversion
// request and turns them into a Request the command builder can trust.
//
// Rules are evaluated in a fixed order and the first failure wins:
//
//  1. a file must be present (MissingFile)
//  2. output_format must be a bare token (InvalidOutputFormat)
//  3. the input extension must be on the allow-list for the media kind
//     (UnsupportedInputFormat)
//  4. numeric and token options must parse and be in range
//     (InvalidParameterValue, naming the field)
//  5. flip must be h, v, hv or vh (InvalidFlipDirection)
//
// Validation is pure: nothing is written to or read from disk.
package params
