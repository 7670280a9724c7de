// devtoken 为本地联调签发 Access Token
//
//	go run ./cmd/devtoken -user <id> -role school_supervisor
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"practicum/backend/config"
	"practicum/backend/internal/model"
	"practicum/backend/pkg/jwt"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径")
	userID := flag.String("user", "", "用户 ID（学生 / 导师 ID 或管理员账号）")
	role := flag.String("role", "admin", "student | school_supervisor | industry_supervisor | admin")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "读取 .env 失败: %v\n", err)
		os.Exit(1)
	}

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "必须指定 -user")
		os.Exit(2)
	}
	if _, err := model.ParseCallerRole(*role); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	token, err := jwt.NewManager(&cfg.Auth).GenerateAccessToken(*userID, *role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "签发失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
