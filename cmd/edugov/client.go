package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/edverse-labs/edugov/state"
	"github.com/edverse-labs/edugov/tx"
)

func httpGet(url string) ([]byte, error) {
	res, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	dat, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", res.StatusCode, string(dat))
	}
	return dat, nil
}

func httpPost(url string, body []byte) ([]byte, error) {
	res, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	dat, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", res.StatusCode, string(dat))
	}
	return dat, nil
}

func queryNetworkID(url string) (string, error) {
	dat, err := httpGet(url + "/status")
	if err != nil {
		return "", err
	}
	var status struct {
		NetworkID string `json:"network_id"`
	}
	if err := json.Unmarshal(dat, &status); err != nil {
		return "", err
	}
	return status.NetworkID, nil
}

func queryAccount(url string, index uint64, address string) (*state.Account, error) {
	var q string
	if len(address) > 0 {
		q = fmt.Sprintf("%s/account?address=%s", url, address)
	} else {
		q = fmt.Sprintf("%s/account?index=%v", url, index)
	}
	dat, err := httpGet(q)
	if err != nil {
		fmt.Printf("query account err:%v\n", err)
		return nil, err
	}
	var res struct {
		Account state.Account `json:"account"`
	}
	if err := json.Unmarshal(dat, &res); err != nil {
		return nil, err
	}
	return &res.Account, nil
}

func sendGovTx(url string, btx *tx.GovTx) error {
	dat, err := tx.MarshalGovTx(btx)
	if err != nil {
		fmt.Printf("marshal tx err:%v\n", err)
		return err
	}
	res, err := httpPost(url+"/sendTx", dat)
	if err != nil {
		fmt.Printf("send tx err:%v\n", err)
		return err
	}
	fmt.Printf("%v\n", string(res))
	return nil
}
