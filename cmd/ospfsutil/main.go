package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/dargueta/ospfs"
	"github.com/dargueta/ospfs/fsck"
)

func main() {
	app := cli.App{
		Usage: "Inspect and manipulate OSPFS disk images",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Create a new, empty OSPFS image",
				ArgsUsage: "IMAGE TOTAL_BLOCKS NINODES",
				Action:    formatImage,
			},
			{
				Name:      "ls",
				Usage:     "List a directory's entries",
				ArgsUsage: "IMAGE PATH",
				Action:    listDir,
			},
			{
				Name:      "cat",
				Usage:     "Print a file's contents",
				ArgsUsage: "IMAGE PATH",
				Action:    catFile,
			},
			{
				Name:      "stat",
				Usage:     "Print an inode's metadata",
				ArgsUsage: "IMAGE PATH",
				Action:    statPath,
			},
			{
				Name:      "mkfile",
				Usage:     "Create an empty regular file",
				ArgsUsage: "IMAGE DIR NAME",
				Action:    mkfile,
			},
			{
				Name:      "ln",
				Usage:     "Hard-link an existing path to a new name",
				ArgsUsage: "IMAGE SRC DIR NAME",
				Action:    link,
			},
			{
				Name:      "symlink",
				Usage:     "Create a symlink, TARGET may be root?PRIMARY:FALLBACK",
				ArgsUsage: "IMAGE DIR NAME TARGET",
				Action:    symlink,
			},
			{
				Name:      "rm",
				Usage:     "Remove a directory entry",
				ArgsUsage: "IMAGE DIR NAME",
				Action:    remove,
			},
			{
				Name:      "fsck",
				Usage:     "Check image consistency",
				ArgsUsage: "IMAGE",
				Action:    runFsck,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("ospfsutil: %s", err)
	}
}

func loadImage(path string) (*ospfs.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ospfs.Open(data)
}

func saveImage(path string, img *ospfs.Image) error {
	return os.WriteFile(path, img.Bytes(), 0o644)
}

func formatImage(c *cli.Context) error {
	if c.Args().Len() != 3 {
		return cli.Exit("usage: format IMAGE TOTAL_BLOCKS NINODES", 1)
	}
	path := c.Args().Get(0)
	totalBlocks, err := strconv.ParseUint(c.Args().Get(1), 10, 32)
	if err != nil {
		return cli.Exit(err, 1)
	}
	ninodes, err := strconv.ParseUint(c.Args().Get(2), 10, 32)
	if err != nil {
		return cli.Exit(err, 1)
	}

	img, err := ospfs.Format(uint(totalBlocks), uint32(ninodes))
	if err != nil {
		return err
	}
	return saveImage(path, img)
}

func listDir(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return cli.Exit("usage: ls IMAGE PATH", 1)
	}
	img, err := loadImage(c.Args().Get(0))
	if err != nil {
		return err
	}
	fs := ospfs.Mount(img)
	entries, err := fs.ReadDirAt(ospfs.Identity{}, c.Args().Get(1))
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%8d  %s\n", e.Ino, e.Name)
	}
	return nil
}

func catFile(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return cli.Exit("usage: cat IMAGE PATH", 1)
	}
	img, err := loadImage(c.Args().Get(0))
	if err != nil {
		return err
	}
	fs := ospfs.Mount(img)
	ref, _, err := fs.Resolve(ospfs.Identity{}, c.Args().Get(1))
	if err != nil {
		return err
	}
	size, err := ref.Size()
	if err != nil {
		return err
	}

	out := os.Stdout
	_, err = ospfs.Read(ref, 0, size, func(src []byte) error {
		_, werr := out.Write(src)
		return werr
	})
	return err
}

func statPath(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return cli.Exit("usage: stat IMAGE PATH", 1)
	}
	img, err := loadImage(c.Args().Get(0))
	if err != nil {
		return err
	}
	fs := ospfs.Mount(img)
	st, err := fs.Stat(ospfs.Identity{}, c.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Printf("ino:   %d\n", st.Ino)
	fmt.Printf("type:  %s\n", st.FType)
	fmt.Printf("size:  %d\n", st.Size)
	fmt.Printf("nlink: %d\n", st.Nlink)
	fmt.Printf("mode:  %#o\n", st.Mode)
	return nil
}

func mkfile(c *cli.Context) error {
	if c.Args().Len() != 3 {
		return cli.Exit("usage: mkfile IMAGE DIR NAME", 1)
	}
	path := c.Args().Get(0)
	img, err := loadImage(path)
	if err != nil {
		return err
	}
	fs := ospfs.Mount(img)
	if _, err := fs.CreateAt(ospfs.Identity{}, c.Args().Get(1), c.Args().Get(2), ospfs.S_IRUSR|ospfs.S_IWUSR|ospfs.S_IRGRP|ospfs.S_IROTH); err != nil {
		return err
	}
	return saveImage(path, img)
}

func link(c *cli.Context) error {
	if c.Args().Len() != 4 {
		return cli.Exit("usage: ln IMAGE SRC DIR NAME", 1)
	}
	path := c.Args().Get(0)
	img, err := loadImage(path)
	if err != nil {
		return err
	}
	fs := ospfs.Mount(img)
	if err := fs.LinkAt(ospfs.Identity{}, c.Args().Get(1), c.Args().Get(2), c.Args().Get(3)); err != nil {
		return err
	}
	return saveImage(path, img)
}

func symlink(c *cli.Context) error {
	if c.Args().Len() != 4 {
		return cli.Exit("usage: symlink IMAGE DIR NAME TARGET", 1)
	}
	path := c.Args().Get(0)
	img, err := loadImage(path)
	if err != nil {
		return err
	}
	fs := ospfs.Mount(img)
	if _, err := fs.SymlinkAt(ospfs.Identity{}, c.Args().Get(1), c.Args().Get(2), c.Args().Get(3)); err != nil {
		return err
	}
	return saveImage(path, img)
}

func remove(c *cli.Context) error {
	if c.Args().Len() != 3 {
		return cli.Exit("usage: rm IMAGE DIR NAME", 1)
	}
	path := c.Args().Get(0)
	img, err := loadImage(path)
	if err != nil {
		return err
	}
	fs := ospfs.Mount(img)
	if err := fs.UnlinkAt(ospfs.Identity{}, c.Args().Get(1), c.Args().Get(2)); err != nil {
		return err
	}
	return saveImage(path, img)
}

func runFsck(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("usage: fsck IMAGE", 1)
	}
	img, err := loadImage(c.Args().Get(0))
	if err != nil {
		return err
	}
	if err := fsck.Check(img); err != nil {
		fmt.Println(err)
		return cli.Exit("", 1)
	}
	fmt.Println("image is consistent")
	return nil
}
