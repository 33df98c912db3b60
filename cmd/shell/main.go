// Command shell is an interactive client for the distributed RAID-5
// store: it dials every configured block server, wires a façade and a
// file-system layer on top, and drives them from a line-oriented
// command loop, trimmed from original_source/shell.py's command set
// down to the operations SPEC_FULL.md names (create/write/read/unlink,
// repair, verify, kill, dump/load, and status for inspecting the
// failed-server set). kill does not stop a remote process — the shell
// only holds RPC handles — it forces the target server straight into
// the client's failed-server set, the same state a detected disconnect
// would leave it in.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wothmag07/distributed-raid5-filesystem/internal/blockstore"
	"github.com/wothmag07/distributed-raid5-filesystem/internal/config"
	"github.com/wothmag07/distributed-raid5-filesystem/internal/fsdemo"
	"github.com/wothmag07/distributed-raid5-filesystem/internal/logger"
	"github.com/wothmag07/distributed-raid5-filesystem/internal/raidclient"
)

var (
	numServers    int
	startPort     int
	serverAddress string
	totalBlocks   int
	blockSize     int
	maxInodes     int
	maxFilename   int
	logLevel      string
	format        bool
)

var rootCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive client shell for the RAID-5 block store",
	RunE:  runShell,
}

func init() {
	rootCmd.Flags().IntVar(&numServers, "servers", config.DefaultNumServers, "number of block servers (N, >= 3)")
	rootCmd.Flags().IntVar(&startPort, "start-port", config.DefaultStartPort, "first server's port; server i listens on start-port+i")
	rootCmd.Flags().StringVar(&serverAddress, "address", config.DefaultServerAddress, "host all block servers are reachable at")
	rootCmd.Flags().IntVar(&totalBlocks, "total-blocks", config.DefaultTotalNumBlocks, "total logical block count")
	rootCmd.Flags().IntVar(&blockSize, "block-size", config.DefaultBlockSize, "size in bytes of each block")
	rootCmd.Flags().IntVar(&maxInodes, "max-inodes", 16, "number of inodes in the recovered file-system layer")
	rootCmd.Flags().IntVar(&maxFilename, "max-filename", 28, "max file name length in the recovered file-system layer")
	rootCmd.Flags().StringVar(&logLevel, "log-level", config.LogLevelInfo, "log level: debug, info, warn, error")
	rootCmd.Flags().BoolVar(&format, "format", true, "format (zero) the file system on startup")
}

func runShell(cmd *cobra.Command, args []string) error {
	if err := logger.InitLogger(logLevel); err != nil {
		return fmt.Errorf("shell: %w", err)
	}
	cfg := config.Default()
	cfg.BlockSize = blockSize
	cfg.TotalNumBlocks = totalBlocks
	cfg.NumServers = numServers
	cfg.StartPort = startPort
	cfg.ServerAddress = serverAddress
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("shell: %w", err)
	}

	proxies := make([]raidclient.ServerProxy, cfg.NumServers)
	for i := 0; i < cfg.NumServers; i++ {
		p, err := raidclient.DialHTTP(cfg.ServerAddr(i))
		if err != nil {
			return fmt.Errorf("shell: dialing server %d at %s: %w", i, cfg.ServerAddr(i), err)
		}
		proxies[i] = p
	}

	client, err := raidclient.New(proxies, cfg.BlockSize, cfg.TotalNumBlocks, nil)
	if err != nil {
		return fmt.Errorf("shell: %w", err)
	}
	facade := blockstore.New(client, cfg.BlockSize, cfg.TotalNumBlocks, blockstore.Geometry{
		InodeSize:               0,
		MaxNumInodes:            maxInodes,
		MaxFilename:             maxFilename,
		InodeNumberDirentrySize: 0,
	})

	fs, err := fsdemo.New(facade, cfg.BlockSize, cfg.TotalNumBlocks, maxInodes, maxFilename)
	if err != nil {
		return fmt.Errorf("shell: %w", err)
	}
	if format {
		if err := fs.Format(); err != nil {
			return fmt.Errorf("shell: formatting: %w", err)
		}
	}

	return newREPL(facade, fs).run()
}

type repl struct {
	facade *blockstore.Facade
	fs     *fsdemo.Filesystem
	out    *bufio.Writer
}

func newREPL(facade *blockstore.Facade, fs *fsdemo.Filesystem) *repl {
	return &repl{facade: facade, fs: fs, out: bufio.NewWriter(os.Stdout)}
}

func (r *repl) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format+"\n", args...)
	r.out.Flush()
}

func (r *repl) run() error {
	scanner := bufio.NewScanner(os.Stdin)
	r.printf("distributed-raid5 shell (type 'help' for commands)")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return nil
		}
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		if err := r.dispatch(tokens); err != nil {
			r.printf("error: %v", err)
		}
		if tokens[0] == "quit" || tokens[0] == "exit" {
			return nil
		}
	}
}

func (r *repl) dispatch(tokens []string) error {
	switch tokens[0] {
	case "help":
		r.printf("create <name> | write <inode> <offset> <data> | read <inode> <offset> <count> | unlink <name>")
		r.printf("repair <server> | verify | status | kill <server> | dump <file> | load <file> | quit")
		return nil

	case "create":
		if len(tokens) != 2 {
			return fmt.Errorf("usage: create <name>")
		}
		ino, status, err := r.fs.Create(fsdemo.RootInode, tokens[1], fsdemo.InodeTypeFile)
		if err != nil {
			return err
		}
		r.printf("%s inode=%d", status, ino)
		return nil

	case "write":
		if len(tokens) < 4 {
			return fmt.Errorf("usage: write <inode> <offset> <data...>")
		}
		ino, err := strconv.Atoi(tokens[1])
		if err != nil {
			return err
		}
		offset, err := strconv.Atoi(tokens[2])
		if err != nil {
			return err
		}
		data := []byte(strings.Join(tokens[3:], " "))
		n, status, err := r.fs.Write(int32(ino), int64(offset), data)
		if err != nil {
			return err
		}
		r.printf("%s bytes_written=%d", status, n)
		return nil

	case "read":
		if len(tokens) != 4 {
			return fmt.Errorf("usage: read <inode> <offset> <count>")
		}
		ino, err := strconv.Atoi(tokens[1])
		if err != nil {
			return err
		}
		offset, err := strconv.Atoi(tokens[2])
		if err != nil {
			return err
		}
		count, err := strconv.Atoi(tokens[3])
		if err != nil {
			return err
		}
		data, status, err := r.fs.Read(int32(ino), int64(offset), count)
		if err != nil {
			return err
		}
		r.printf("%s data=%q", status, string(data))
		return nil

	case "unlink":
		if len(tokens) != 2 {
			return fmt.Errorf("usage: unlink <name>")
		}
		status, err := r.fs.Unlink(fsdemo.RootInode, tokens[1])
		if err != nil {
			return err
		}
		r.printf("%s", status)
		return nil

	case "repair":
		if len(tokens) != 2 {
			return fmt.Errorf("usage: repair <server>")
		}
		serverID, err := strconv.Atoi(tokens[1])
		if err != nil {
			return err
		}
		if err := r.facade.Repair(serverID); err != nil {
			return err
		}
		r.printf("repaired server %d", serverID)
		return nil

	case "kill":
		if len(tokens) != 2 {
			return fmt.Errorf("usage: kill <server>")
		}
		serverID, err := strconv.Atoi(tokens[1])
		if err != nil {
			return err
		}
		if err := r.facade.Kill(serverID); err != nil {
			return err
		}
		r.printf("server %d marked failed", serverID)
		return nil

	case "verify":
		bad := r.facade.VerifyAll()
		if len(bad) == 0 {
			r.printf("all stripes consistent")
		} else {
			r.printf("inconsistent stripes: %v", bad)
		}
		return nil

	case "status":
		r.printf("failed servers: %v", r.facade.FailedServers())
		return nil

	case "dump":
		if len(tokens) != 2 {
			return fmt.Errorf("usage: dump <file>")
		}
		if err := r.facade.DumpToDisk(tokens[1]); err != nil {
			return err
		}
		r.printf("dumped to %s", tokens[1])
		return nil

	case "load":
		if len(tokens) != 2 {
			return fmt.Errorf("usage: load <file>")
		}
		if err := r.facade.LoadFromDump(tokens[1]); err != nil {
			return err
		}
		r.printf("loaded from %s", tokens[1])
		return nil

	case "quit", "exit":
		r.printf("bye")
		return nil

	default:
		return fmt.Errorf("unknown command %q, type 'help'", tokens[0])
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
