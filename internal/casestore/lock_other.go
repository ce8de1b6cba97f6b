//go:build !unix && !windows

package casestore

import "os"

func tryLock(*os.File) error { return errUnsupported }

func unlock(*os.File) error { return nil }
