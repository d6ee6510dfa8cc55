package main

import (
	"crypto/rand"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/arbordb/arbor"
	"github.com/arbordb/arbor/internal/config"
	"github.com/arbordb/arbor/internal/password"
	"github.com/arbordb/arbor/internal/wire"
	"github.com/arbordb/arbor/pkg/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	dbConfig := arbor.Config{
		Path:          cfg.Path,
		MinimumFreeGB: cfg.MinimumFreeGB,
		Logger:        log,
	}

	switch flag.Arg(0) {
	case "init":
		initStore(log, dbConfig)
	case "find":
		if flag.NArg() < 2 {
			usage()
		}
		findEntry(log, dbConfig, flag.Arg(1))
	case "verify":
		verifySecret(log, dbConfig)
	case "genpass":
		secret, err := password.Generate(rand.Reader)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(secret)
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: arbor [-config config.yaml] init | find <path> | verify | genpass")
	os.Exit(2)
}

// initStore creates a fresh store, generates an admin secret and records its
// derived credential as the log's first block. The secret itself is printed
// once and never stored.
func initStore(log *logrus.Logger, dbConfig arbor.Config) {
	db, err := arbor.Create(dbConfig)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	secret, err := password.Generate(rand.Reader)
	if err != nil {
		log.Fatal(err)
	}

	salt, err := password.RandomSalt(rand.Reader)
	if err != nil {
		log.Fatal(err)
	}

	derived, err := password.Derive(types.PasswordAlgScrypt, salt, secret, 32)
	if err != nil {
		log.Fatal(err)
	}

	credential := types.Credential{
		Alg:     types.PasswordAlgScrypt,
		Salt:    salt,
		Derived: derived,
	}

	err = db.AppendBlock(types.Block{
		Id:      types.RootId.Next(),
		Payload: wire.EncodeCredential(credential),
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("store initialized at %s\n", dbConfig.Path)
	fmt.Printf("admin secret (write it down, it is not stored): %s\n", secret)
}

// verifySecret prompts for the admin secret without echoing it and checks it
// against the credential recorded by init as the log's first block.
func verifySecret(log *logrus.Logger, dbConfig arbor.Config) {
	db, err := arbor.Open(dbConfig)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	secret, err := password.Prompt("admin secret: ")
	if err != nil {
		log.Fatal(err)
	}

	ok, err := db.VerifyCredential(types.RootId.Next(), secret)
	if err != nil {
		log.Fatal(err)
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "secret does not match")
		os.Exit(1)
	}
	fmt.Println("secret ok")
}

func findEntry(log *logrus.Logger, dbConfig arbor.Config, path string) {
	db, err := arbor.Open(dbConfig)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	entry, err := db.FindEntry(path)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("id=%d parent=%d name=%s objectclass=%s\n",
		entry.Node.Id, entry.Node.ParentId, entry.Node.Name, entry.ObjectClass)
}
