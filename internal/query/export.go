package query

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/example/caprieux-storefront/internal/domain/order"
	"github.com/example/caprieux-storefront/internal/format"
)

const bom = "\ufeff"

var exportHeaders = []string{
	"Mã đơn",
	"Khách hàng",
	"Số điện thoại",
	"Địa chỉ",
	"Sản phẩm",
	"Số lượng",
	"Tổng tiền",
	"Trạng thái",
	"Ngày tạo",
}

// NoOrdersMessage is shown when there is nothing to export.
const NoOrdersMessage = "Không có đơn hàng để xuất"

// ExportFileName is the download name for an export made at the handler's
// current time.
func (h *Handler) ExportFileName() string {
	return "don-hang-" + format.Date(h.now()) + ".csv"
}

// ExportOrders writes every order to w as CSV and returns the suggested file
// name. Requires an admin session.
func (h *Handler) ExportOrders(ctx context.Context, w io.Writer) (string, error) {
	orders, err := h.ListAllOrders(ctx)
	if err != nil {
		return "", err
	}
	if len(orders) == 0 {
		return "", order.ErrNoOrders
	}
	if err := WriteOrdersCSV(w, orders); err != nil {
		return "", err
	}
	h.logger.Info("exported orders", zap.Int("count", len(orders)))
	return h.ExportFileName(), nil
}

// WriteOrdersCSV writes a UTF-8 BOM, a header row and one row per order.
// Every cell is quoted and rows end in CRLF.
func WriteOrdersCSV(w io.Writer, orders []order.Order) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(bom); err != nil {
		return err
	}
	writeRow(bw, exportHeaders)
	for _, o := range orders {
		bw.WriteString("\r\n")
		writeRow(bw, []string{
			o.OrderCode.String(),
			o.FullName,
			o.PhoneNumber,
			o.Address,
			o.ProductName(),
			strconv.Itoa(o.Quantity),
			strconv.FormatInt(o.Amount, 10),
			string(o.Status),
			format.DateTime(o.CreatedAt),
		})
	}
	return bw.Flush()
}

func writeRow(bw *bufio.Writer, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteByte('"')
		bw.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		bw.WriteByte('"')
	}
}
