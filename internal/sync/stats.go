package sync

import (
	"strconv"
	"strings"
)

// rsync is invoked with --stats, so the end of each transfer log carries
// lines like:
//
//	Number of regular files transferred: 1,204
//	Total transferred file size: 4.21M bytes
//	total size is 4.21M  speedup is 1.00
//
// parseStatsLine picks the counters out of a single output line and folds
// them into the folder result. Lines that carry no stats are ignored.
func parseStatsLine(line string, result *FolderResult) {
	lower := strings.ToLower(line)

	switch {
	case strings.Contains(lower, "files transferred:"):
		if n, ok := parseTrailingCount(line); ok {
			result.FilesTransferred = n
		}
	case strings.Contains(lower, "total transferred file size:"):
		if v := parseAfterColon(line); v != "" {
			result.TransferredSize = strings.TrimSuffix(v, " bytes")
		}
	case strings.HasPrefix(lower, "total size is"):
		fields := strings.Fields(line)
		if len(fields) >= 4 {
			result.TotalSize = fields[3]
		}
	}
}

// parseTrailingCount parses the integer after the last colon, tolerating
// rsync's thousands separators.
func parseTrailingCount(line string) (int, bool) {
	v := parseAfterColon(line)
	if v == "" {
		return 0, false
	}
	v = strings.ReplaceAll(v, ",", "")
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseAfterColon(line string) string {
	idx := strings.LastIndex(line, ":")
	if idx < 0 || idx+1 >= len(line) {
		return ""
	}
	return strings.TrimSpace(line[idx+1:])
}
