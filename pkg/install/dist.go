package install

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gookit/color"
)

// DistSource is one file dist stages: its on-disk path and the relative
// path it should occupy inside the staging directory / archive.
type DistSource struct {
	AbsPath string
	RelPath string
}

// DistDriver stages a project's tagged sources under a directory and
// optionally archives and checksums the result (§4.10 "Dist").
type DistDriver struct {
	Archiver string // "tar.gz", "tar.xz" (treated as tar.gz, no xz in stdlib), "zip", or ""
	Checksum string // "sha256" or ""

	// Progress, if set, is called once per staged file; used to print a
	// gookit/color-highlighted progress line distinct from the
	// fatih/color diagnostic stream.
	Progress func(rel string, index, total int)
}

// Stage copies every source into stageDir, preserving RelPath, calling
// Progress after each copy.
func (d *DistDriver) Stage(sources []DistSource, stageDir string) error {
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		return err
	}
	for i, src := range sources {
		dest := filepath.Join(stageDir, src.RelPath)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := copyPlain(src.AbsPath, dest); err != nil {
			return fmt.Errorf("dist: staging %s: %w", src.RelPath, err)
		}
		if d.Progress != nil {
			d.Progress(src.RelPath, i+1, len(sources))
		} else {
			fmt.Println(color.FgGreen.Render(fmt.Sprintf("staged %s (%d/%d)", src.RelPath, i+1, len(sources))))
		}
	}
	return nil
}

// Archive packs stageDir's contents into outPath per d.Archiver ("" or
// "none" skips archiving and returns stageDir). "tar.xz" falls back to gzip
// compression, since no xz encoder is available; callers needing real xz
// output should post-process the .tar with an external xz binary.
func (d *DistDriver) Archive(stageDir, outPath string) (string, error) {
	switch d.Archiver {
	case "", "none":
		return stageDir, nil
	case "zip":
		return outPath, archiveZip(stageDir, outPath)
	case "tar.gz", "tar.xz":
		return outPath, archiveTarGz(stageDir, outPath)
	default:
		return "", fmt.Errorf("dist: unknown archiver %q", d.Archiver)
	}
}

// ChecksumFile writes path+".sha256" (or returns "" if d.Checksum isn't
// "sha256") containing the hex digest of the archive.
func (d *DistDriver) ChecksumFile(path string) (string, error) {
	if d.Checksum != "sha256" {
		return "", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	sum := hex.EncodeToString(h.Sum(nil))

	sumPath := path + ".sha256"
	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(path))
	if err := os.WriteFile(sumPath, []byte(line), 0o644); err != nil {
		return "", err
	}
	return sumPath, nil
}

func copyPlain(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func archiveTarGz(root, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	defer gw.Close()
	tw := tar.NewWriter(gw)
	defer tw.Close()

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = rel
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(tw, in)
		return err
	})
}

func archiveZip(root, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(rel)
		if err != nil {
			return err
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(w, in)
		return err
	})
}
