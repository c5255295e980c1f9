package ffmpeg

import (
	"errors"
	"os/exec"
	"strconv"
	"strings"
)

// Available checks "ffmpeg" and "ffprobe" executables.
func Available() error {
	if err := exec.Command("ffmpeg", "-version").Run(); err != nil {
		return errors.New(`can't find ffmpeg executable (ran "ffmpeg -version")`)
	}

	if err := exec.Command("ffprobe", "-version").Run(); err != nil {
		return errors.New(`can't find ffprobe executable (ran "ffprobe -version")`)
	}

	return nil
}

// GetMeta extracts metadata parameter
func GetMeta(file string, par string) (string, error) {
	cmd := exec.Command(
		"ffprobe",            //						call ffprobe
		"-loglevel", "error", //						set loglevel
		"-show_entries", "format="+par, // 				set parameter to write
		"-of", "default=noprint_wrappers=1:nokey=1", //	write only the result (without key)
		file, //										target file
	)

	stdout, err := cmd.Output()
	if err != nil {
		return "", err
	}

	return strings.Trim(string(stdout), "\n"), nil
}

// Duration returns media duration in seconds.
func Duration(file string) (float64, error) {
	res, err := GetMeta(file, "duration")
	if err != nil {
		return 0, err
	}

	return strconv.ParseFloat(res, 64)
}
